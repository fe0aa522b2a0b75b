// Package schedule turns raw VOE disconnection markup into a structured
// half-hour-granular schedule.
package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DateLayout is the wire format for schedule dates.
const DateLayout = "2006-01-02"

// HalfCell is a 30-minute scheduling slot. Off is tri-state: nil means no
// data, true/false a known outage state. Confirm is meaningful only when
// Off is true: true is a confirmed planned outage, false a possible one.
type HalfCell struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	Off     *bool  `json:"off"`
	Confirm *bool  `json:"confirm"`
}

// FullCell carries the same semantics scoped to the whole hour. Its Off
// value is the logical OR of the two halves unless the source marks the
// hour as uniformly off.
type FullCell struct {
	Off     *bool `json:"off"`
	Confirm *bool `json:"confirm"`
}

// HourCell is one hour of the schedule: the full-hour state plus exactly
// two contiguous halves covering minutes [0,30) and [30,60).
type HourCell struct {
	Hour   string      `json:"hour"`
	Full   FullCell    `json:"full"`
	Halves [2]HalfCell `json:"halves"`
}

// DaySchedule is one calendar day of hour cells, hours 00..23.
type DaySchedule struct {
	Date              string     `json:"date"`
	HasDisconnections bool       `json:"has_disconnections"`
	Cells             []HourCell `json:"cells"`
}

// Hash returns the content hash used by the change-detection worker.
// Struct field order makes the JSON encoding deterministic.
func (d *DaySchedule) Hash() string {
	b, err := json.Marshal(d)
	if err != nil {
		// Marshalling a plain value struct cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// CurrentDisconnection is the active-outage status derived from free-text
// status nodes, not from the schedule table.
type CurrentDisconnection struct {
	HasDisconnection bool       `json:"has_disconnection"`
	IsEmergency      *bool      `json:"is_emergency"`
	Reason           *string    `json:"reason"`
	StartedAt        *time.Time `json:"started_at"`
	EstimatedEnd     *time.Time `json:"estimated_end"`
}

// ScheduleResponse is the result of one fetch+parse cycle. It is never
// mutated after construction.
type ScheduleResponse struct {
	Address              string                `json:"address"`
	DisconnectionQueue   string                `json:"disconnection_queue"`
	CurrentDisconnection *CurrentDisconnection `json:"current_disconnection"`
	Disconnections       []DaySchedule         `json:"disconnections"`
}

// Day returns the schedule for the given calendar date, or nil when the
// response has none.
func (r *ScheduleResponse) Day(date time.Time) *DaySchedule {
	key := date.Format(DateLayout)
	for i := range r.Disconnections {
		if r.Disconnections[i].Date == key {
			return &r.Disconnections[i]
		}
	}
	return nil
}
