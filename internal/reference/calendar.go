package reference

import (
	"context"
	"fmt"
	"time"

	"posimport/internal"
)

type seasonalEvent struct {
	name        string
	description string
	dates       map[int][2]string
}

var seasonalEvents = []seasonalEvent{
	{name: "Ramadan", description: "Ramadan month", dates: map[int][2]string{
		2024: {"2024-03-11", "2024-04-09"},
		2025: {"2025-03-01", "2025-03-30"},
	}},
	{name: "Eid Al-Fitr", description: "Eid Al-Fitr holiday", dates: map[int][2]string{
		2024: {"2024-04-10", "2024-04-12"},
		2025: {"2025-03-31", "2025-04-02"},
	}},
	{name: "Eid Al-Adha", description: "Eid Al-Adha holiday", dates: map[int][2]string{
		2024: {"2024-06-16", "2024-06-20"},
		2025: {"2025-06-06", "2025-06-10"},
	}},
	{name: "Saudi National Day", description: "Saudi National Day", dates: map[int][2]string{
		2024: {"2024-09-23", "2024-09-23"},
		2025: {"2025-09-23", "2025-09-23"},
	}},
}

var seedYears = []int{2024, 2025}

// CalendarEvents returns the fixed seasonal events, ordered by year then event.
func CalendarEvents() []internal.CalendarEvent {
	var out []internal.CalendarEvent
	for _, year := range seedYears {
		for _, ev := range seasonalEvents {
			span, ok := ev.dates[year]
			if !ok {
				continue
			}
			start, _ := time.Parse("2006-01-02", span[0])
			end, _ := time.Parse("2006-01-02", span[1])
			out = append(out, internal.CalendarEvent{
				EventName:   fmt.Sprintf("%s %d", ev.name, year),
				Year:        year,
				StartDate:   start,
				EndDate:     end,
				Description: ev.description,
			})
		}
	}
	return out
}

func (s *Service) SeedCalendar(ctx context.Context) (int, error) {
	n, err := s.db.ReplaceCalendarEvents(ctx, CalendarEvents())
	if err != nil {
		return 0, err
	}
	s.logger.Info("calendar seeded", "events", n)
	return n, nil
}
