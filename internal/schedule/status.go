package schedule

import (
	"strings"
	"time"
)

// Free-text markers used by the VOE status block.
const (
	outagePhrase    = "відсутня електроенергія"
	startedAtLabel  = "Час початку – "
	estimatedLabel  = "Орієнтовний час відновлення – до"
	reasonLabel     = "Причина відключення"
	emergencyMarker = "Аварійне"
)

const statusTimeLayout = "15:04 2006.01.02"

// ParseCurrentStatus extracts the active-outage status from the free-text
// nodes that follow the queue line. Absence of the trigger phrase is the
// normal "no outage right now" case, not an error.
func ParseCurrentStatus(nodes []string) *CurrentDisconnection {
	raw := strings.TrimSpace(strings.Join(nodes, " "))

	if !strings.Contains(raw, outagePhrase) {
		return &CurrentDisconnection{HasDisconnection: false}
	}

	cur := &CurrentDisconnection{
		HasDisconnection: true,
		StartedAt:        parseStatusTime(raw, startedAtLabel),
		EstimatedEnd:     parseStatusTime(raw, estimatedLabel),
	}

	if strings.Contains(raw, reasonLabel) {
		if strings.Contains(raw, emergencyMarker) {
			emergency := true
			reason := "Аварійне відключення"
			cur.IsEmergency = &emergency
			cur.Reason = &reason
		} else {
			emergency := false
			cur.IsEmergency = &emergency
			parts := strings.Split(raw, reasonLabel+": ")
			tail := parts[len(parts)-1]
			reason := strings.TrimSpace(strings.SplitN(tail, "Час", 2)[0])
			cur.Reason = &reason
		}
	}

	return cur
}

// parseStatusTime reads a "HH:MM YYYY.MM.DD" timestamp that follows label
// in the status text, returning nil when absent or malformed.
func parseStatusTime(text, label string) *time.Time {
	_, after, found := strings.Cut(text, label)
	if !found {
		return nil
	}

	fields := strings.Fields(after)
	if len(fields) < 2 {
		return nil
	}

	ts, err := time.Parse(statusTimeLayout, fields[0]+" "+fields[1])
	if err != nil {
		return nil
	}
	return &ts
}
