// Package render builds the user-facing Telegram HTML representation of a
// day schedule.
package render

import (
	"fmt"
	"strings"
	"time"

	"voe-monitor-backend/internal/schedule"
)

// CancelledText is sent when a previously published day schedule disappears
// from the source.
const CancelledText = "За вашою адресою зафіксовано відміну графіка відключень на цей день."

// Schedule renders the full Telegram message for one day. A nil day means
// the schedule for that day was cancelled.
func Schedule(day *schedule.DaySchedule, current *schedule.CurrentDisconnection, queue, address string, date, now time.Time) string {
	if day == nil {
		return CancelledText
	}

	lines := []string{
		fmt.Sprintf("<b>%s</b> · <b>%s</b>\n", queue, date.Format("02-01-2006")),
		fmt.Sprintf("📍 %s\n", address),
	}

	if cur := CurrentDisconnection(current); cur != "" {
		lines = append(lines, cur)
	}

	halves := make([]schedule.HalfCell, 0, len(day.Cells)*2)
	for _, cell := range day.Cells {
		halves = append(halves, cell.Halves[0], cell.Halves[1])
	}

	var confirmed, unconfirmed float64

	offConfirmed := func(h schedule.HalfCell) bool {
		return isTrue(h.Off) && isTrue(h.Confirm)
	}
	offTentative := func(h schedule.HalfCell) bool {
		return isTrue(h.Off) && !isTrue(h.Confirm)
	}
	on := func(h schedule.HalfCell) bool {
		return !isTrue(h.Off)
	}

	for i := 0; i < len(halves); {
		var rangeStr string
		var hours float64

		i, rangeStr, hours = consumeRange(halves, i, offConfirmed)
		if rangeStr != "" {
			confirmed += hours
			lines = append(lines, fmt.Sprintf("🟥 <b>%s</b> — Підтверджене відключення", rangeStr))
		}

		i, rangeStr, hours = consumeRange(halves, i, offTentative)
		if rangeStr != "" {
			unconfirmed += hours
			lines = append(lines, fmt.Sprintf("🟧 <b>%s</b> — Можливе відключення", rangeStr))
		}

		i, rangeStr, _ = consumeRange(halves, i, on)
		if rangeStr != "" {
			lines = append(lines, fmt.Sprintf("🟩 <b>%s</b> — Зі світлом", rangeStr))
		}
		lines = append(lines, " ")
	}

	lines = append(lines, "Підтверджених відключень: "+hourWord(confirmed))
	if unconfirmed > 0 {
		lines = append(lines, "Можливих відключень: "+hourWord(unconfirmed))
	}
	lines = append(lines,
		"Зі світлом: "+hourWord(24-confirmed-unconfirmed),
		fmt.Sprintf("Оновлено: <b>%s</b>", now.Format("02-01-2006 15:04:05")),
	)

	return strings.Join(lines, "\n")
}

// CurrentDisconnection renders the active-outage block, or "" when there is
// no outage right now.
func CurrentDisconnection(current *schedule.CurrentDisconnection) string {
	if current == nil || !current.HasDisconnection {
		return ""
	}

	startTime, endTime := "Невідомо", "Невідомо"
	if current.StartedAt != nil && current.EstimatedEnd != nil {
		startTime = current.StartedAt.Format("15:04 02-01-2006")
		endTime = current.EstimatedEnd.Format("15:04 02-01-2006")
	}

	reason := "Невідома"
	if current.Reason != nil {
		reason = *current.Reason
	}

	return "За вашою адресою зараз відсутня електроенергія.\n" +
		fmt.Sprintf("Причина: <b><u>%s</u></b>.\n", reason) +
		fmt.Sprintf("Час початку: <b>%s</b>.\n", startTime) +
		fmt.Sprintf("Орієнтовний час відновлення: <b>%s</b>.\n", endTime)
}

// consumeRange advances over consecutive halves matching the predicate and
// returns the next index, the merged "HH:MM - HH:MM" range and its length
// in hours. An empty range string means the predicate failed immediately.
func consumeRange(halves []schedule.HalfCell, start int, match func(schedule.HalfCell) bool) (int, string, float64) {
	i := start
	if i >= len(halves) || !match(halves[i]) {
		return i, "", 0
	}

	first := halves[i].Start
	var hours float64
	for i < len(halves) && match(halves[i]) {
		hours += 0.5
		i++
	}
	return i, fmt.Sprintf("%s - %s", first, halves[i-1].End), hours
}

// hourWord formats an hour count with the matching Ukrainian plural form.
func hourWord(hours float64) string {
	var value string
	if hours == float64(int(hours)) {
		value = fmt.Sprintf("%d", int(hours))
	} else {
		value = fmt.Sprintf("%.1f", hours)
	}

	switch {
	case hours == 1:
		return fmt.Sprintf("<b>%s година</b>", value)
	case hours > 0 && hours < 5 && hours != 1:
		return fmt.Sprintf("<b>%s години</b>", value)
	default:
		return fmt.Sprintf("<b>%s годин</b>", value)
	}
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
