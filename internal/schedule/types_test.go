package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDay(date string) DaySchedule {
	off := true
	confirmed := true
	return DaySchedule{
		Date:              date,
		HasDisconnections: true,
		Cells: []HourCell{{
			Hour: "08:00",
			Full: FullCell{Off: &off, Confirm: &confirmed},
			Halves: [2]HalfCell{
				{Start: "08:00", End: "08:30", Off: &off, Confirm: &confirmed},
				{Start: "08:30", End: "09:00", Off: &off, Confirm: &confirmed},
			},
		}},
	}
}

func TestDayScheduleHash_Deterministic(t *testing.T) {
	a := sampleDay("2026-08-31")
	b := sampleDay("2026-08-31")

	assert.Equal(t, a.Hash(), a.Hash())
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestDayScheduleHash_SensitiveToContent(t *testing.T) {
	base := sampleDay("2026-08-31")

	changedDate := sampleDay("2026-09-01")
	assert.NotEqual(t, base.Hash(), changedDate.Hash())

	changedConfirm := sampleDay("2026-08-31")
	tentative := false
	changedConfirm.Cells[0].Halves[1].Confirm = &tentative
	assert.NotEqual(t, base.Hash(), changedConfirm.Hash())
}

func TestScheduleResponseDay(t *testing.T) {
	resp := &ScheduleResponse{
		Disconnections: []DaySchedule{
			sampleDay("2026-08-31"),
			sampleDay("2026-09-01"),
		},
	}

	day := resp.Day(time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC))
	require.NotNil(t, day)
	assert.Equal(t, "2026-09-01", day.Date)

	assert.Nil(t, resp.Day(time.Date(2026, time.September, 2, 0, 0, 0, 0, time.UTC)))
}
