// Package suncalc computes per-date sun event times for a fixed camera location.
package suncalc

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sj14/astral/pkg/astral"

	"github.com/tphakala/trapwatch/internal/errors"
)

// SunEventTimes holds the sun event times of one date, in the location of the requested date.
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// entries expire so long-running processes do not accumulate one entry per day forever
const cacheTTL = 72 * time.Hour

// SunCalc calculates and caches sun event times.
type SunCalc struct {
	cache    *cache.Cache
	observer astral.Observer
}

// NewSunCalc creates a new SunCalc for the given coordinates.
func NewSunCalc(latitude, longitude float64) *SunCalc {
	return &SunCalc{
		// no janitor goroutine; expired entries are replaced on lookup
		cache:    cache.New(cacheTTL, 0),
		observer: astral.Observer{Latitude: latitude, Longitude: longitude},
	}
}

// GetSunEventTimes returns the sun event times for the calendar date of date,
// interpreted in date's location.
func (sc *SunCalc) GetSunEventTimes(date time.Time) (SunEventTimes, error) {
	loc := date.Location()
	key := date.Format("2006-01-02") + "@" + loc.String()

	if v, ok := sc.cache.Get(key); ok {
		return v.(SunEventTimes), nil
	}

	times, err := sc.calculate(date)
	if err != nil {
		return SunEventTimes{}, err
	}
	sc.cache.SetDefault(key, times)
	return times, nil
}

// GetSunriseTime returns the sunrise time for a given date.
func (sc *SunCalc) GetSunriseTime(date time.Time) (time.Time, error) {
	t, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, err
	}
	return t.Sunrise, nil
}

// GetSunsetTime returns the sunset time for a given date.
func (sc *SunCalc) GetSunsetTime(date time.Time) (time.Time, error) {
	t, err := sc.GetSunEventTimes(date)
	if err != nil {
		return time.Time{}, err
	}
	return t.Sunset, nil
}

func (sc *SunCalc) calculate(date time.Time) (SunEventTimes, error) {
	loc := date.Location()
	// astral works on the UTC calendar date; anchor at local noon so the UTC
	// date matches the local one for all practical offsets
	noon := time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc)
	day := time.Date(noon.UTC().Year(), noon.UTC().Month(), noon.UTC().Day(), 0, 0, 0, 0, time.UTC)

	civilDawn, err := astral.Dawn(sc.observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, wrap("civil dawn", date, err)
	}
	sunrise, err := astral.Sunrise(sc.observer, day)
	if err != nil {
		return SunEventTimes{}, wrap("sunrise", date, err)
	}
	sunset, err := astral.Sunset(sc.observer, day)
	if err != nil {
		return SunEventTimes{}, wrap("sunset", date, err)
	}
	civilDusk, err := astral.Dusk(sc.observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, wrap("civil dusk", date, err)
	}

	return SunEventTimes{
		CivilDawn: civilDawn.In(loc),
		Sunrise:   sunrise.In(loc),
		Sunset:    sunset.In(loc),
		CivilDusk: civilDusk.In(loc),
	}, nil
}

func wrap(event string, date time.Time, err error) error {
	return errors.New(fmt.Errorf("calculate %s: %w", event, err)).
		Component("suncalc").
		Category(errors.CategoryGeneric).
		Priority(errors.PriorityLow).
		Context("date", date.Format("2006-01-02")).
		Build()
}
