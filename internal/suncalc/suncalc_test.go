package suncalc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSunEventTimesOrdering(t *testing.T) {
	// Helsinki, equinox
	sc := NewSunCalc(60.1699, 24.9384)
	loc := time.FixedZone("EET", 2*3600)
	date := time.Date(2024, 3, 20, 0, 0, 0, 0, loc)

	times, err := sc.GetSunEventTimes(date)
	require.NoError(t, err)

	assert.True(t, times.CivilDawn.Before(times.Sunrise))
	assert.True(t, times.Sunrise.Before(times.Sunset))
	assert.True(t, times.Sunset.Before(times.CivilDusk))
	assert.Equal(t, loc, times.Sunrise.Location())
	assert.Equal(t, 20, times.Sunrise.Day())
	// equinox sunrise in Helsinki is around 06:20 local time
	assert.InDelta(t, 6, times.Sunrise.Hour(), 1)
	assert.InDelta(t, 18, times.Sunset.Hour(), 1)
}

func TestGetSunEventTimesCached(t *testing.T) {
	sc := NewSunCalc(60.1699, 24.9384)
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := sc.GetSunEventTimes(date)
	require.NoError(t, err)
	assert.Equal(t, 1, sc.cache.ItemCount())

	second, err := sc.GetSunEventTimes(date.Add(15 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, sc.cache.ItemCount())
}

func TestPolarNightDoesNotPanic(t *testing.T) {
	// Longyearbyen in December has no sunrise; astral may report an error or zero times
	sc := NewSunCalc(78.2232, 15.6267)

	assert.NotPanics(t, func() {
		_, _ = sc.GetSunriseTime(time.Date(2024, 12, 21, 0, 0, 0, 0, time.UTC))
	})
}

func TestSunriseAndSunsetHelpers(t *testing.T) {
	sc := NewSunCalc(60.1699, 24.9384)
	date := time.Date(2024, 4, 15, 0, 0, 0, 0, time.FixedZone("EEST", 3*3600))

	sunrise, err := sc.GetSunriseTime(date)
	require.NoError(t, err)
	sunset, err := sc.GetSunsetTime(date)
	require.NoError(t, err)

	assert.True(t, sunrise.Before(sunset))
}
