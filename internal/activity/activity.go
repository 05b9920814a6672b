// Package activity models per-species time-of-day activity priors.
//
// Each species maps to a Curve returning a confidence multiplier for a local
// timestamp. Curves are either one of the named profiles, which assign a
// multiplier per Period, or an explicit 24-value hourly curve. Species absent
// from the model get a multiplier of 1.
package activity

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/tphakala/trapwatch/internal/errors"
)

// Curve returns the activity multiplier for a local timestamp already classified into period.
type Curve interface {
	Multiplier(t time.Time, period Period) float64
}

// Profile is a per-period multiplier table. Missing periods count as 1.
type Profile map[Period]float64

// Multiplier implements Curve.
func (p Profile) Multiplier(_ time.Time, period Period) float64 {
	if v, ok := p[period]; ok {
		return v
	}
	return 1
}

// HourlyCurve holds one multiplier per local hour.
type HourlyCurve [24]float64

// Multiplier implements Curve.
func (h HourlyCurve) Multiplier(t time.Time, _ Period) float64 {
	return h[t.Hour()]
}

// Named profiles.
const (
	ProfileCrepuscular = "crepuscular"
	ProfileNocturnal   = "nocturnal"
	ProfileDiurnal     = "diurnal"
	ProfileCathemeral  = "cathemeral"
)

// Profiles returns the built-in profiles by name.
func Profiles() map[string]Profile {
	return map[string]Profile{
		ProfileCrepuscular: {Dawn: 1.2, Dusk: 1.2, Night: 0.8, Morning: 0.9, Afternoon: 0.9, Midday: 0.5},
		ProfileNocturnal:   {Night: 1.3, Dusk: 1.0, Dawn: 0.8, Morning: 0.3, Midday: 0.3, Afternoon: 0.3},
		ProfileDiurnal:     {Morning: 1.2, Dawn: 1.0, Midday: 0.9, Afternoon: 1.0, Dusk: 0.7, Night: 0.3},
		ProfileCathemeral:  {},
	}
}

// ProfileByName returns a built-in profile, matched case-insensitively.
func ProfileByName(name string) (Profile, error) {
	p, ok := Profiles()[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, errors.New(fmt.Errorf("unknown activity profile %q", name)).
			Component("activity").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return p, nil
}

// DefaultSpeciesProfiles associates common camera-trap species with profiles.
func DefaultSpeciesProfiles() map[string]string {
	return map[string]string{
		"Deer":     ProfileCrepuscular,
		"Fox":      ProfileCrepuscular,
		"Coyote":   ProfileCrepuscular,
		"Rabbit":   ProfileCrepuscular,
		"Raccoon":  ProfileNocturnal,
		"Opossum":  ProfileNocturnal,
		"Skunk":    ProfileNocturnal,
		"Bobcat":   ProfileCrepuscular,
		"Bird":     ProfileDiurnal,
		"Squirrel": ProfileDiurnal,
		"Turkey":   ProfileDiurnal,
		"Human":    ProfileCathemeral,
		"Vehicle":  ProfileCathemeral,
	}
}

// Model maps species to activity curves. It is immutable after construction
// and safe for concurrent use.
type Model struct {
	curves     map[string]Curve
	classifier Classifier
}

// NewModel creates a model from species curves. Keys are matched
// case-insensitively. A nil classifier selects HourClassifier.
func NewModel(curves map[string]Curve, classifier Classifier) *Model {
	if classifier == nil {
		classifier = HourClassifier{}
	}
	m := &Model{curves: make(map[string]Curve, len(curves)), classifier: classifier}
	for name, c := range curves {
		if c != nil {
			m.curves[fold(name)] = c
		}
	}
	return m
}

// BuildModel creates a model from species profile names and explicit hourly
// curves; hourly curves win when a species appears in both.
func BuildModel(speciesProfiles map[string]string, hourly map[string][]float64, classifier Classifier) (*Model, error) {
	curves := make(map[string]Curve, len(speciesProfiles)+len(hourly))
	for species, name := range speciesProfiles {
		p, err := ProfileByName(name)
		if err != nil {
			return nil, errors.New(err).Component("activity").Context("species", species).Build()
		}
		curves[species] = p
	}
	for species, values := range hourly {
		if len(values) != 24 {
			return nil, errors.New(fmt.Errorf("hourly activity curve for %q has %d values, want 24", species, len(values))).
				Component("activity").
				Category(errors.CategoryConfiguration).
				Build()
		}
		var h HourlyCurve
		copy(h[:], values)
		delete(curves, species)
		curves[species] = h
	}
	return NewModel(curves, classifier), nil
}

// Multiplier returns the activity multiplier for species at ts, interpreted in
// ts's own location. Unknown species and negative curve values yield 1 and 0.
func (m *Model) Multiplier(species string, ts time.Time) float64 {
	if m == nil {
		return 1
	}
	c, ok := m.curves[fold(species)]
	if !ok {
		return 1
	}
	v := c.Multiplier(ts, m.classifier.Period(ts))
	if v < 0 {
		return 0
	}
	return v
}

// Period returns the period the model assigns to ts.
func (m *Model) Period(ts time.Time) Period {
	if m == nil {
		return HourClassifier{}.Period(ts)
	}
	return m.classifier.Period(ts)
}

// Species returns the sorted, folded names of species with a curve.
func (m *Model) Species() []string {
	return slices.Sorted(maps.Keys(m.curves))
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
