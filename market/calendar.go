package market

import (
	"fmt"
	"sort"
	"time"
)

// Compile-time interface check.
var _ Calendar = (*SessionCalendar)(nil)

// SessionCalendar is a Calendar backed by an explicit, sorted list of session
// days. Times are compared by calendar day only.
type SessionCalendar struct {
	sessions []time.Time
	index    map[time.Time]int
}

// NewSessionCalendar builds a calendar from session days. Duplicates are
// dropped and the list is sorted.
func NewSessionCalendar(days []time.Time) *SessionCalendar {
	uniq := make(map[time.Time]struct{}, len(days))
	sessions := make([]time.Time, 0, len(days))
	for _, d := range days {
		d = Day(d)
		if _, ok := uniq[d]; ok {
			continue
		}
		uniq[d] = struct{}{}
		sessions = append(sessions, d)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].Before(sessions[j]) })

	index := make(map[time.Time]int, len(sessions))
	for i, s := range sessions {
		index[s] = i
	}
	return &SessionCalendar{sessions: sessions, index: index}
}

// WeekdayCalendar returns a calendar with every Monday-Friday in [start, end]
// as a session, minus the given holidays.
func WeekdayCalendar(start, end time.Time, holidays ...time.Time) *SessionCalendar {
	skip := make(map[time.Time]struct{}, len(holidays))
	for _, h := range holidays {
		skip[Day(h)] = struct{}{}
	}
	var days []time.Time
	for d := Day(start); !d.After(Day(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, ok := skip[d]; ok {
			continue
		}
		days = append(days, d)
	}
	return NewSessionCalendar(days)
}

func (c *SessionCalendar) IsSession(dt time.Time) bool {
	_, ok := c.index[Day(dt)]
	return ok
}

func (c *SessionCalendar) Offset(dt time.Time, n int) (time.Time, error) {
	day := Day(dt)
	base, ok := c.index[day]
	if !ok {
		// first session strictly after dt
		next := sort.Search(len(c.sessions), func(i int) bool { return c.sessions[i].After(day) })
		switch {
		case n == 0:
			return time.Time{}, fmt.Errorf("offset %s: %w", day.Format(time.DateOnly), ErrNotASession)
		case n < 0:
			base = next
		default:
			base = next - 1
		}
	}
	i := base + n
	if i < 0 || i >= len(c.sessions) {
		return time.Time{}, fmt.Errorf("offset %s by %d: %w", day.Format(time.DateOnly), n, ErrOutOfCalendar)
	}
	return c.sessions[i], nil
}

func (c *SessionCalendar) Sessions(start, end time.Time) []time.Time {
	lo := sort.Search(len(c.sessions), func(i int) bool { return !c.sessions[i].Before(Day(start)) })
	hi := sort.Search(len(c.sessions), func(i int) bool { return c.sessions[i].After(Day(end)) })
	if lo >= hi {
		return nil
	}
	return append([]time.Time(nil), c.sessions[lo:hi]...)
}

// Len returns the number of sessions.
func (c *SessionCalendar) Len() int { return len(c.sessions) }
