package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeInfo_DayRange(t *testing.T) {
	ti := TimeInfo{Date: "2025-06-10", Timezone: "America/Los_Angeles"}
	loc := ti.Location()
	require.Equal(t, "America/Los_Angeles", loc.String())

	start, end, err := ti.DayRange(7)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 6, 17, 23, 59, 59, 0, loc), end)
}

func TestTimeInfo_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	ti := TimeInfo{Date: "2025-06-10", Timezone: "Mars/Olympus"}
	assert.Equal(t, time.UTC, ti.Location())
}

func TestTimeInfo_InvalidDate(t *testing.T) {
	_, err := TimeInfo{Date: "10/06/2025"}.Today()
	assert.Error(t, err)
}

func TestTimeInfoAt(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	ti := TimeInfoAt(time.Date(2025, 6, 10, 22, 30, 0, 0, time.UTC), loc)
	assert.Equal(t, "2025-06-11", ti.Date)
	assert.Equal(t, "00:30", ti.Time)
	assert.Equal(t, "Europe/Berlin", ti.Timezone)
}
