package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestWeekdayCalendar_SkipsWeekendsAndHolidays(t *testing.T) {
	// 2024-01-01 is a Monday.
	cal := WeekdayCalendar(date(2024, 1, 1), date(2024, 1, 14), date(2024, 1, 3))

	assert.Equal(t, 9, cal.Len())
	assert.True(t, cal.IsSession(date(2024, 1, 2)))
	assert.False(t, cal.IsSession(date(2024, 1, 3)))
	assert.False(t, cal.IsSession(date(2024, 1, 6)))
	assert.True(t, cal.IsSession(time.Date(2024, 1, 2, 14, 59, 0, 0, time.UTC)))
}

func TestSessionCalendar_Offset(t *testing.T) {
	cal := WeekdayCalendar(date(2024, 1, 1), date(2024, 1, 12))

	tests := []struct {
		name string
		dt   time.Time
		n    int
		want time.Time
		err  error
	}{
		{"same session", date(2024, 1, 3), 0, date(2024, 1, 3), nil},
		{"forward", date(2024, 1, 3), 2, date(2024, 1, 5), nil},
		{"across weekend", date(2024, 1, 5), 1, date(2024, 1, 8), nil},
		{"backward", date(2024, 1, 8), -1, date(2024, 1, 5), nil},
		{"saturday back", date(2024, 1, 6), -1, date(2024, 1, 5), nil},
		{"saturday forward", date(2024, 1, 6), 1, date(2024, 1, 8), nil},
		{"saturday zero", date(2024, 1, 6), 0, time.Time{}, ErrNotASession},
		{"before start", date(2024, 1, 2), -5, time.Time{}, ErrOutOfCalendar},
		{"after end", date(2024, 1, 11), 3, time.Time{}, ErrOutOfCalendar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cal.Offset(tt.dt, tt.n)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionCalendar_Sessions(t *testing.T) {
	cal := NewSessionCalendar([]time.Time{date(2024, 1, 4), date(2024, 1, 2), date(2024, 1, 3), date(2024, 1, 2)})
	assert.Equal(t, 3, cal.Len())

	got := cal.Sessions(date(2024, 1, 3), date(2024, 1, 10))
	assert.Equal(t, []time.Time{date(2024, 1, 3), date(2024, 1, 4)}, got)
	assert.Empty(t, cal.Sessions(date(2024, 2, 1), date(2024, 2, 5)))
}
