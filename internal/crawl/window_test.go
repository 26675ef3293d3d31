package crawl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewWindowDefaults(t *testing.T) {
	t.Parallel()

	clock := fixedClock{now: time.Date(2024, 1, 11, 15, 30, 0, 0, time.UTC)}
	w, err := NewWindow("", "", clock)
	require.NoError(t, err)
	require.Equal(t, date(2024, 1, 10), w.Start, "default start is yesterday")
	require.Equal(t, epochDate, w.End, "default end is the epoch date")
}

func TestNewWindowExplicitBounds(t *testing.T) {
	t.Parallel()

	w, err := NewWindow("2024-01-10", "2023-12-01", fixedClock{})
	require.NoError(t, err)
	require.Equal(t, date(2024, 1, 10), w.Start)
	require.Equal(t, date(2023, 12, 1), w.End)
}

func TestNewWindowInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{"garbage start", "not-a-date", ""},
		{"garbage end", "", "10/01/2024"},
		{"end equals start", "2024-01-10", "2024-01-10"},
		{"end after start", "2024-01-10", "2024-02-01"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewWindow(tt.start, tt.end, fixedClock{now: date(2024, 6, 1)})
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestWindowDecisions(t *testing.T) {
	t.Parallel()

	w := Window{Start: date(2024, 1, 10), End: date(2024, 1, 5)}

	require.True(t, w.TooRecent(date(2024, 1, 11)))
	require.False(t, w.TooRecent(date(2024, 1, 10)))

	require.True(t, w.Contains(date(2024, 1, 10)), "start is inclusive")
	require.True(t, w.Contains(date(2024, 1, 6)))
	require.False(t, w.Contains(date(2024, 1, 5)), "end is exclusive")

	require.True(t, w.Terminates(date(2024, 1, 5)))
	require.True(t, w.Terminates(date(2024, 1, 4)), "skipping past the boundary still terminates")
	require.False(t, w.Terminates(date(2024, 1, 6)))
}
