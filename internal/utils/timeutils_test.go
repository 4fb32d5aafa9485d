package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{"2024-03-05", "2024-03-05 17:45:00", "2024-03-05 17:45", "2024-03-05T17:45:00Z", " 2024-03-05 "} {
		got, err := ParseDate(value)
		require.NoError(t, err, value)
		assert.Equal(t, date(2024, time.March, 5), got, value)
	}

	for _, value := range []string{"", "05/03/2024", "yesterday"} {
		_, err := ParseDate(value)
		assert.Error(t, err, value)
	}
}

func TestInDateRange(t *testing.T) {
	from, to := date(2024, time.March, 1), date(2024, time.March, 10)
	assert.True(t, InDateRange(date(2024, time.March, 1), from, to))
	assert.True(t, InDateRange(date(2024, time.March, 10), from, to))
	assert.False(t, InDateRange(date(2024, time.February, 29), from, to))
	assert.False(t, InDateRange(date(2024, time.March, 11), from, to))
	assert.True(t, InDateRange(date(1999, time.January, 1), time.Time{}, to))
	assert.True(t, InDateRange(date(2030, time.January, 1), from, time.Time{}))
}

func TestResolveDatePreset(t *testing.T) {
	now := time.Date(2024, time.March, 15, 22, 30, 0, 0, time.UTC)
	cases := []struct {
		preset   string
		from, to time.Time
	}{
		{"today", date(2024, time.March, 15), date(2024, time.March, 15)},
		{"yesterday", date(2024, time.March, 14), date(2024, time.March, 14)},
		{"last7days", date(2024, time.March, 8), date(2024, time.March, 15)},
		{"last30days", date(2024, time.February, 14), date(2024, time.March, 15)},
		{"thisMonth", date(2024, time.March, 1), date(2024, time.March, 15)},
		{"lastMonth", date(2024, time.February, 1), date(2024, time.February, 29)},
		{"thisYear", date(2024, time.January, 1), date(2024, time.March, 15)},
		{"all", time.Time{}, time.Time{}},
	}
	for _, tc := range cases {
		t.Run(tc.preset, func(t *testing.T) {
			from, to, err := ResolveDatePreset(tc.preset, now)
			require.NoError(t, err)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, tc.to, to)
		})
	}

	_, _, err := ResolveDatePreset("fortnight", now)
	assert.Error(t, err)
}

func TestResolveLastMonthInJanuary(t *testing.T) {
	from, to, err := ResolveDatePreset("lastMonth", time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.December, 1), from)
	assert.Equal(t, date(2024, time.December, 31), to)
}
