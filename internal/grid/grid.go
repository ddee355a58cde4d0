// Package grid builds the month-grid and day-timeline view models consumed by
// the rendering layer. Both projections are pure functions over a flat event
// list; they are cheap enough to re-run on every state change, so no caching
// is performed.
//
// The canonical weekday convention throughout is Go's time.Weekday numbering:
// Sunday = 0 through Saturday = 6.
package grid

import (
	"time"

	"github.com/example/flowfly/internal/timeslot"
)

// Event is the projection input: the subset of event fields the grid needs.
type Event struct {
	ID        string
	Title     string
	StartTime string
	EndTime   string
	Color     string
	Day       int
	Date      time.Time
}

// MonthCell is one of the 42 cells of a month grid.
type MonthCell struct {
	Day            int
	Date           time.Time
	IsCurrentMonth bool
	Events         []Event
	// Overflow counts events hidden beyond the display cap.
	Overflow int
}

// MonthGrid is a fixed 6x7 projection of a calendar month.
type MonthGrid struct {
	Year  int
	Month time.Month
	Cells [42]MonthCell
}

// maxEventsPerCell caps how many events a month cell lists before collapsing
// the remainder into an overflow counter ("+N more").
const maxEventsPerCell = 3

// BuildMonthGrid projects events onto a 42-cell grid for the given month.
// Leading cells are padded from the previous month and trailing cells from the
// next, flagged with IsCurrentMonth=false. Events are grouped onto
// current-month cells by their weekday slot, mirroring the weekday-based day
// filter of the event listing.
func BuildMonthGrid(year int, month time.Month, events []Event) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	leading := int(first.Weekday())
	daysInMonth := first.AddDate(0, 1, -1).Day()

	byWeekday := make(map[int][]Event)
	for _, event := range events {
		byWeekday[event.Day] = append(byWeekday[event.Day], event)
	}

	out := MonthGrid{Year: year, Month: month}
	for i := range out.Cells {
		date := first.AddDate(0, 0, i-leading)
		cell := MonthCell{
			Day:            date.Day(),
			Date:           date,
			IsCurrentMonth: i >= leading && i < leading+daysInMonth,
		}
		if cell.IsCurrentMonth {
			matched := byWeekday[int(date.Weekday())]
			if len(matched) > maxEventsPerCell {
				cell.Overflow = len(matched) - maxEventsPerCell
				matched = matched[:maxEventsPerCell]
			}
			cell.Events = append([]Event(nil), matched...)
		}
		out.Cells[i] = cell
	}
	return out
}

// TimelineOptions control day-timeline layout.
type TimelineOptions struct {
	GridStartHour int
	GridEndHour   int
	PxPerHour     float64
}

// DefaultTimelineOptions mirror the rendered day view: 08:00 to 20:00 at 60px
// per hour.
func DefaultTimelineOptions() TimelineOptions {
	return TimelineOptions{GridStartHour: 8, GridEndHour: 20, PxPerHour: 60}
}

// TimelineEvent is an event positioned on a day timeline.
type TimelineEvent struct {
	Event
	Top    float64
	Height float64
}

// BuildDayTimeline filters events to the selected weekday and positions each
// one vertically. Events are positioned independently: concurrent events
// overlap visually rather than being laid out side by side. Events with
// malformed times are skipped.
func BuildDayTimeline(events []Event, weekday int, opts TimelineOptions) []TimelineEvent {
	if opts.PxPerHour <= 0 {
		opts = DefaultTimelineOptions()
	}

	var out []TimelineEvent
	for _, event := range events {
		if event.Day != weekday {
			continue
		}
		start, err := timeslot.Parse(event.StartTime)
		if err != nil {
			continue
		}
		end, err := timeslot.Parse(event.EndTime)
		if err != nil {
			continue
		}

		top := timeslot.PositionInGrid(start, opts.GridStartHour, opts.PxPerHour)
		bottom := timeslot.PositionInGrid(end, opts.GridStartHour, opts.PxPerHour)
		out = append(out, TimelineEvent{
			Event:  event,
			Top:    top,
			Height: bottom - top,
		})
	}
	return out
}
