package promotion

import (
	"slices"
	"time"
)

const (
	timeOfDayLayout = "15:04:05"
	dateLayout      = "2006-01-02"
)

// InWindow reports whether a time-based promotion is active at the given
// instant. The caller must convert now to the store's local timezone first;
// "9am to 5pm" is a local-time concept.
//
// Promotions that are not time-based carry no schedule constraint and are
// always in window. An unknown schedule kind fails closed.
func InWindow(p *Promotion, now time.Time) bool {
	if p.Type != TypeTimeBased {
		return true
	}

	// Zero-padded "HH:MM:SS" strings order the same way the times do,
	// so the inclusive range check is a plain string comparison.
	tod := now.Format(timeOfDayLayout)
	if tod < p.ActiveTimeStart || tod > p.ActiveTimeEnd {
		return false
	}

	switch p.ScheduleKind {
	case ScheduleDaily:
		return true
	case ScheduleWeekly:
		return slices.Contains(p.ActiveDays, now.Weekday())
	case ScheduleSpecificDates:
		return slices.Contains(p.SpecificDates, now.Format(dateLayout))
	default:
		return false
	}
}
