package model_test

import (
	"testing"
	"time"

	"github.com/Astemirdum/library-circulation/circulation/internal/model"
	"github.com/stretchr/testify/require"
)

func TestOverdueDays(t *testing.T) {
	t.Parallel()
	due := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{name: "before due", at: due.Add(-time.Hour), want: 0},
		{name: "exactly due", at: due, want: 0},
		{name: "partial day late", at: due.Add(23 * time.Hour), want: 0},
		{name: "one day late", at: due.Add(24 * time.Hour), want: 1},
		{name: "three and a half days late", at: due.Add(84 * time.Hour), want: 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, model.OverdueDays(due, tt.at))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	require.Equal(t, 1, model.DaysBetween(now, now.Add(time.Hour)))
	require.Equal(t, 0, model.DaysBetween(now, now.Add(-time.Hour)))
	require.Equal(t, -2, model.DaysBetween(now, now.Add(-48*time.Hour)))
}
