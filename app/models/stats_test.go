package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHourBucket(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "minutes and seconds stripped",
			in:   time.Date(2026, 3, 1, 14, 37, 12, 999, time.UTC),
			want: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "already on the hour",
			in:   time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
			want: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "local time converted to utc first",
			in:   time.Date(2026, 3, 1, 15, 30, 0, 0, berlin),
			want: time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tc.want.Equal(HourBucket(tc.in)))
		})
	}
}

func TestDayBucket(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "time of day stripped",
			in:   time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC),
			want: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "local midnight can land on the previous utc day",
			in:   time.Date(2026, 3, 1, 0, 30, 0, 0, berlin),
			want: time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, tc.want.Equal(DayBucket(tc.in)))
		})
	}
}
