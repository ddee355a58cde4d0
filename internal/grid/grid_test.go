package grid

import (
	"testing"
	"time"
)

func TestBuildMonthGrid(t *testing.T) {
	t.Parallel()

	t.Run("pads leading and trailing cells from adjacent months", func(t *testing.T) {
		// March 2024 starts on a Friday (weekday 5) and has 31 days.
		grid := BuildMonthGrid(2024, time.March, nil)

		if grid.Year != 2024 || grid.Month != time.March {
			t.Fatalf("unexpected grid identity %d-%v", grid.Year, grid.Month)
		}

		for i := 0; i < 5; i++ {
			cell := grid.Cells[i]
			if cell.IsCurrentMonth {
				t.Fatalf("cell %d should be padding, got %+v", i, cell)
			}
			if cell.Date.Month() != time.February {
				t.Fatalf("cell %d should come from February, got %v", i, cell.Date)
			}
		}

		first := grid.Cells[5]
		if !first.IsCurrentMonth || first.Day != 1 {
			t.Fatalf("expected March 1 at cell 5, got %+v", first)
		}

		last := grid.Cells[5+30]
		if !last.IsCurrentMonth || last.Day != 31 {
			t.Fatalf("expected March 31 at cell 35, got %+v", last)
		}

		for i := 36; i < 42; i++ {
			cell := grid.Cells[i]
			if cell.IsCurrentMonth {
				t.Fatalf("cell %d should be padding, got %+v", i, cell)
			}
			if cell.Date.Month() != time.April {
				t.Fatalf("cell %d should come from April, got %v", i, cell.Date)
			}
		}
	})

	t.Run("cell dates are consecutive", func(t *testing.T) {
		grid := BuildMonthGrid(2024, time.February, nil)
		for i := 1; i < 42; i++ {
			want := grid.Cells[i-1].Date.AddDate(0, 0, 1)
			if !grid.Cells[i].Date.Equal(want) {
				t.Fatalf("cell %d expected %v, got %v", i, want, grid.Cells[i].Date)
			}
		}
	})

	t.Run("groups events onto current-month cells by weekday", func(t *testing.T) {
		events := []Event{
			{ID: "ev-1", Title: "Standup", Day: 1},
			{ID: "ev-2", Title: "Retro", Day: 5},
		}
		grid := BuildMonthGrid(2024, time.March, events)

		for i, cell := range grid.Cells {
			if !cell.IsCurrentMonth {
				if len(cell.Events) != 0 {
					t.Fatalf("padding cell %d should carry no events, got %v", i, cell.Events)
				}
				continue
			}
			switch int(cell.Date.Weekday()) {
			case 1:
				if len(cell.Events) != 1 || cell.Events[0].ID != "ev-1" {
					t.Fatalf("Monday cell %d expected ev-1, got %v", i, cell.Events)
				}
			case 5:
				if len(cell.Events) != 1 || cell.Events[0].ID != "ev-2" {
					t.Fatalf("Friday cell %d expected ev-2, got %v", i, cell.Events)
				}
			default:
				if len(cell.Events) != 0 {
					t.Fatalf("cell %d expected no events, got %v", i, cell.Events)
				}
			}
		}
	})

	t.Run("collapses events beyond the display cap into overflow", func(t *testing.T) {
		events := []Event{
			{ID: "ev-1", Day: 1},
			{ID: "ev-2", Day: 1},
			{ID: "ev-3", Day: 1},
			{ID: "ev-4", Day: 1},
			{ID: "ev-5", Day: 1},
		}
		grid := BuildMonthGrid(2024, time.March, events)

		for i, cell := range grid.Cells {
			if !cell.IsCurrentMonth || int(cell.Date.Weekday()) != 1 {
				continue
			}
			if len(cell.Events) != maxEventsPerCell {
				t.Fatalf("cell %d expected %d visible events, got %d", i, maxEventsPerCell, len(cell.Events))
			}
			if cell.Overflow != 2 {
				t.Fatalf("cell %d expected overflow 2, got %d", i, cell.Overflow)
			}
		}
	})
}

func TestBuildDayTimeline(t *testing.T) {
	t.Parallel()

	events := []Event{
		{ID: "ev-1", Title: "Standup", StartTime: "09:00", EndTime: "09:30", Day: 1},
		{ID: "ev-2", Title: "Planning", StartTime: "10:00", EndTime: "11:00", Day: 1},
		{ID: "ev-3", Title: "Retro", StartTime: "16:00", EndTime: "17:00", Day: 5},
	}

	t.Run("filters to the requested weekday and positions events", func(t *testing.T) {
		timeline := BuildDayTimeline(events, 1, DefaultTimelineOptions())

		if len(timeline) != 2 {
			t.Fatalf("expected 2 events for Monday, got %d", len(timeline))
		}
		first := timeline[0]
		if first.ID != "ev-1" {
			t.Fatalf("expected ev-1 first, got %q", first.ID)
		}
		if first.Top != 60 {
			t.Fatalf("expected 09:00 at 60px from an 08:00 grid start, got %v", first.Top)
		}
		if first.Height != 30 {
			t.Fatalf("expected a 30 minute event to span 30px, got %v", first.Height)
		}
		second := timeline[1]
		if second.Top != 120 || second.Height != 60 {
			t.Fatalf("expected ev-2 at 120px height 60px, got %v / %v", second.Top, second.Height)
		}
	})

	t.Run("skips events with malformed times", func(t *testing.T) {
		broken := []Event{
			{ID: "ev-1", StartTime: "9:00", EndTime: "10:00", Day: 1},
			{ID: "ev-2", StartTime: "09:00", EndTime: "break", Day: 1},
			{ID: "ev-3", StartTime: "09:00", EndTime: "10:00", Day: 1},
		}
		timeline := BuildDayTimeline(broken, 1, DefaultTimelineOptions())
		if len(timeline) != 1 || timeline[0].ID != "ev-3" {
			t.Fatalf("expected only ev-3 to survive, got %+v", timeline)
		}
	})

	t.Run("falls back to default options for a zero pixel scale", func(t *testing.T) {
		timeline := BuildDayTimeline(events, 1, TimelineOptions{})
		if len(timeline) != 2 {
			t.Fatalf("expected 2 events, got %d", len(timeline))
		}
		if timeline[0].Top != 60 {
			t.Fatalf("expected default layout, got top %v", timeline[0].Top)
		}
	})

	t.Run("returns nothing for an empty weekday", func(t *testing.T) {
		if timeline := BuildDayTimeline(events, 3, DefaultTimelineOptions()); timeline != nil {
			t.Fatalf("expected nil, got %+v", timeline)
		}
	})
}
