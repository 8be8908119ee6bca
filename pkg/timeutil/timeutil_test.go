package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*60*60)

	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"utc midday", time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"already midnight", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"local early morning is the previous utc day", time.Date(2025, 3, 2, 3, 0, 0, 0, almaty), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StartOfDay(tt.in))
		})
	}
}

func TestNextDay(t *testing.T) {
	got := NextDay(time.Date(2024, 2, 28, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate(" 2025-03-01 ")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "01.03.2025", "2025-13-01", "2025-03-01T00:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatDateTime(t *testing.T) {
	at := time.Date(2025, 3, 1, 14, 5, 9, 500, time.FixedZone("UTC+5", 5*60*60))
	assert.Equal(t, "2025-03-01 09:05:09", FormatDateTime(at))
}
