package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// NoQueueInfo is the queue string of a degraded response, used when the
// markup carries no schedule table at all.
const NoQueueInfo = "Немає інформації про чергу відключень"

// Cell class vocabulary of the detailed-disconnection table.
const (
	classHasDisconnection = "has_disconnection"
	classFullHour         = "full_hour"
	classConfirmed        = "confirm_1"
	classTentative        = "confirm_0"
	classFillConfirmed    = "confirmed"
)

// Parser converts raw VOE markup into ScheduleResponse values. It never
// fails on malformed input; the worst case is a degraded empty response.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a schedule parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger.Named("parser")}
}

// Parse extracts the schedule for up to maxDays days from the table
// fragment. now anchors day-label year inference and is injected for
// testability.
func (p *Parser) Parse(rawHTML, addressName string, maxDays int, now time.Time) *ScheduleResponse {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		p.logger.Warn("unparseable markup", zap.String("address", addressName), zap.Error(err))
		return &ScheduleResponse{
			Address:            addressName,
			DisconnectionQueue: NoQueueInfo,
		}
	}

	// The queue label is the first text line under the table header; the
	// lines after it describe the current outage, if any.
	var headerTexts []string
	doc.Find("div.disconnection-detailed-table p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			headerTexts = append(headerTexts, text)
		}
	})
	if len(headerTexts) == 0 {
		return &ScheduleResponse{
			Address:            addressName,
			DisconnectionQueue: NoQueueInfo,
		}
	}

	queue := headerTexts[0]
	current := ParseCurrentStatus(headerTexts[1:])

	container := doc.Find("div.disconnection-detailed-table-container").First()

	var dayDates []time.Time
	container.Find("div.day_col").Each(func(_ int, s *goquery.Selection) {
		label := strings.TrimSpace(s.Text())
		date, err := ParseDayLabel(label, now)
		if err != nil {
			p.logger.Warn("skipping unparseable day label",
				zap.String("address", addressName), zap.String("label", label))
			return
		}
		dayDates = append(dayDates, date)
	})
	if len(dayDates) == 0 {
		p.logger.Warn("no day columns found in schedule", zap.String("address", addressName))
		return &ScheduleResponse{
			Address:            addressName,
			DisconnectionQueue: queue,
		}
	}
	if len(dayDates) > maxDays {
		dayDates = dayDates[:maxDays]
	}

	var cells []*goquery.Selection
	container.Find("div.disconnection-detailed-table-cell.cell").Each(func(_ int, s *goquery.Selection) {
		cells = append(cells, s)
	})

	// Cells are laid out row-major, 24 per day; day boundaries are derived
	// purely from count.
	cellIndex := 0
	days := make([]DaySchedule, 0, len(dayDates))
	for _, date := range dayDates {
		var dayCells []HourCell
		dayOff := false

		for hour := 0; hour < 24 && cellIndex < len(cells); hour++ {
			cell := p.parseCell(cells[cellIndex], hour)
			cellIndex++

			if offTrue(cell.Full.Off) || offTrue(cell.Halves[0].Off) || offTrue(cell.Halves[1].Off) {
				dayOff = true
			}
			dayCells = append(dayCells, cell)
		}

		days = append(days, DaySchedule{
			Date:              date.Format(DateLayout),
			HasDisconnections: dayOff,
			Cells:             dayCells,
		})
	}

	anyOff := false
	for _, day := range days {
		if day.HasDisconnections {
			anyOff = true
			break
		}
	}
	if !anyOff {
		p.logger.Info("no disconnections in parsed schedule",
			zap.String("address", addressName), zap.Int("days", len(days)))
	}

	return &ScheduleResponse{
		Address:              addressName,
		DisconnectionQueue:   queue,
		CurrentDisconnection: current,
		Disconnections:       days,
	}
}

// parseCell reads one hour cell. Full-hour outages are flagged by class
// co-occurrence, partial ones by the nested fill element's --start/--size
// style percentages of the 60-minute cell.
func (p *Parser) parseCell(s *goquery.Selection, hour int) HourCell {
	classes := classSet(s)
	partial := classes[classHasDisconnection]
	fullOff := partial && classes[classFullHour]
	confirm := confirmFromClasses(classes)

	left := HalfCell{Start: fmtTime(hour, 0), End: fmtTime(hour, 30)}
	right := HalfCell{Start: fmtTime(hour, 30), End: fmtTime(hour+1, 0)}

	switch {
	case fullOff:
		left.Off = boolPtr(true)
		left.Confirm = confirm
		right.Off = boolPtr(true)
		right.Confirm = confirm

	case partial:
		leftOff, rightOff := false, false
		var fillConfirm *bool

		if fill := s.Find("div.fill").First(); fill.Length() > 0 {
			style := fill.AttrOr("style", "")
			startPct := parseCSSVar(style, "start")
			sizePct := parseCSSVar(style, "size")

			startMin := int(startPct * 60 / 100)
			endMin := int((startPct + sizePct) * 60 / 100)
			if endMin > 60 {
				endMin = 60
			}

			leftOff = overlaps(0, 30, startMin, endMin)
			rightOff = overlaps(30, 60, startMin, endMin)
			fillConfirm = boolPtr(classSet(fill)[classFillConfirmed])
		}

		left.Off = boolPtr(leftOff)
		right.Off = boolPtr(rightOff)
		if leftOff {
			left.Confirm = fillConfirm
		}
		if rightOff {
			right.Confirm = fillConfirm
		}

	default:
		left.Off = boolPtr(false)
		right.Off = boolPtr(false)
	}

	return HourCell{
		Hour: fmt.Sprintf("%02d:00", hour),
		Full: FullCell{
			Off:     boolPtr(fullOff || (offTrue(left.Off) && offTrue(right.Off))),
			Confirm: confirm,
		},
		Halves: [2]HalfCell{left, right},
	}
}

func classSet(s *goquery.Selection) map[string]bool {
	set := make(map[string]bool)
	for _, c := range strings.Fields(s.AttrOr("class", "")) {
		set[c] = true
	}
	return set
}

// confirmFromClasses maps the fixed confirm-token vocabulary to a tri-state
// flag: confirm_1 is a confirmed outage, confirm_0 a tentative one.
func confirmFromClasses(classes map[string]bool) *bool {
	switch {
	case classes[classConfirmed]:
		return boolPtr(true)
	case classes[classTentative]:
		return boolPtr(false)
	default:
		return nil
	}
}

var cssVarRe = regexp.MustCompile(`--([a-z]+):\s*([0-9.]+)`)

// parseCSSVar reads a numeric custom property like "--start: 25%" from an
// inline style, returning 0 when missing.
func parseCSSVar(style, name string) float64 {
	for _, m := range cssVarRe.FindAllStringSubmatch(style, -1) {
		if m[1] != name {
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return 0
		}
		return v
	}
	return 0
}

// overlaps reports whether [bStart,bEnd) intersects [aStart,aEnd).
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return bStart < aEnd && bEnd > aStart
}

// fmtTime renders a minute offset as "HH:MM", wrapping past midnight so the
// 23:30 half ends at "00:00".
func fmtTime(hour, minute int) string {
	total := (hour*60 + minute) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func offTrue(b *bool) bool {
	return b != nil && *b
}

func boolPtr(b bool) *bool {
	return &b
}
