package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("23:35")
	require.NoError(t, err)
	assert.Equal(t, 23, tod.Hour)
	assert.Equal(t, 35, tod.Minute)
	assert.Equal(t, "23:35", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)

	_, err = ParseTimeOfDay("bogus")
	assert.Error(t, err)
}

func TestFirstComputeAt(t *testing.T) {
	cutoff := TimeOfDay{Hour: 11}

	cases := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{
			name:  "weekday runs same day",
			today: time.Date(2016, 6, 6, 9, 0, 0, 0, time.UTC), // Monday
			want:  time.Date(2016, 6, 6, 11, 0, 0, 0, time.UTC),
		},
		{
			name:  "saturday pushed to monday",
			today: time.Date(2016, 6, 11, 9, 0, 0, 0, time.UTC),
			want:  time.Date(2016, 6, 13, 11, 0, 0, 0, time.UTC),
		},
		{
			name:  "sunday pushed to monday",
			today: time.Date(2016, 6, 12, 9, 0, 0, 0, time.UTC),
			want:  time.Date(2016, 6, 13, 11, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FirstComputeAt(tc.today, cutoff))
		})
	}
}

func TestNextComputeAt(t *testing.T) {
	cutoff := TimeOfDay{Hour: 11}

	cases := []struct {
		name  string
		today time.Time
		want  time.Time
	}{
		{
			name:  "midweek goes to next day",
			today: time.Date(2016, 6, 6, 11, 0, 0, 0, time.UTC), // Monday
			want:  time.Date(2016, 6, 7, 11, 0, 0, 0, time.UTC),
		},
		{
			name:  "friday skips to monday",
			today: time.Date(2016, 6, 10, 11, 0, 0, 0, time.UTC),
			want:  time.Date(2016, 6, 13, 11, 0, 0, 0, time.UTC),
		},
		{
			name:  "saturday run lands on monday",
			today: time.Date(2016, 6, 11, 11, 0, 0, 0, time.UTC),
			want:  time.Date(2016, 6, 13, 11, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NextComputeAt(tc.today, cutoff))
		})
	}
}
