package activity

import (
	"time"

	"github.com/tphakala/trapwatch/internal/suncalc"
)

// Period is a coarse time-of-day window.
type Period string

const (
	Night     Period = "night"
	Dawn      Period = "dawn"
	Morning   Period = "morning"
	Midday    Period = "midday"
	Afternoon Period = "afternoon"
	Dusk      Period = "dusk"
)

// Periods lists all periods in day order starting after midnight.
var Periods = []Period{Night, Dawn, Morning, Midday, Afternoon, Dusk}

// Classifier maps a local timestamp to a Period.
type Classifier interface {
	Period(t time.Time) Period
}

// HourClassifier uses fixed local-hour windows:
// night 20-5, dawn 5-8, morning 8-11, midday 11-15, afternoon 15-18, dusk 18-20.
type HourClassifier struct{}

// Period implements Classifier.
func (HourClassifier) Period(t time.Time) Period {
	return periodForHour(t.Hour())
}

func periodForHour(h int) Period {
	switch {
	case h < 5 || h >= 20:
		return Night
	case h < 8:
		return Dawn
	case h < 11:
		return Morning
	case h < 15:
		return Midday
	case h < 18:
		return Afternoon
	default:
		return Dusk
	}
}

// twilightSpan is how far dawn extends past sunrise and dusk starts before sunset.
const twilightSpan = time.Hour

// SunClassifier derives dawn and dusk from civil twilight at a fixed location:
// dawn is [civil dawn, sunrise+1h), dusk is [sunset-1h, civil dusk), night lies
// outside civil twilight. Daytime is split by the hour windows. When sun events
// cannot be computed, as in polar day or night, the hour windows are used.
type SunClassifier struct {
	sun      *suncalc.SunCalc
	fallback HourClassifier
}

// NewSunClassifier creates a sun-aware classifier for the given coordinates.
func NewSunClassifier(latitude, longitude float64) *SunClassifier {
	return &SunClassifier{sun: suncalc.NewSunCalc(latitude, longitude)}
}

// Period implements Classifier.
func (c *SunClassifier) Period(t time.Time) Period {
	ev, err := c.sun.GetSunEventTimes(t)
	if err != nil || !validEvents(ev) {
		return c.fallback.Period(t)
	}

	dawnEnd := ev.Sunrise.Add(twilightSpan)
	duskStart := ev.Sunset.Add(-twilightSpan)

	switch {
	case t.Before(ev.CivilDawn) || !t.Before(ev.CivilDusk):
		return Night
	case t.Before(dawnEnd):
		return Dawn
	case !t.Before(duskStart):
		return Dusk
	}

	switch p := periodForHour(t.Hour()); p {
	case Morning, Midday, Afternoon:
		return p
	case Night, Dawn:
		return Morning
	default:
		return Afternoon
	}
}

func validEvents(ev suncalc.SunEventTimes) bool {
	if ev.CivilDawn.IsZero() || ev.Sunrise.IsZero() || ev.Sunset.IsZero() || ev.CivilDusk.IsZero() {
		return false
	}
	return ev.CivilDawn.Before(ev.Sunrise) && ev.Sunrise.Before(ev.Sunset) && ev.Sunset.Before(ev.CivilDusk)
}
