package species

import (
	"maps"
)

// DefaultThreshold is the minimum confidence to save a species with no explicit entry.
const DefaultThreshold = 0.2

// Thresholds is an immutable, case-insensitive species to save-threshold table.
type Thresholds struct {
	defaultValue float64
	perSpecies   map[string]float64
}

// NewThresholds builds a threshold table. A non-positive defaultValue selects DefaultThreshold.
func NewThresholds(defaultValue float64, perSpecies map[string]float64) *Thresholds {
	if defaultValue <= 0 {
		defaultValue = DefaultThreshold
	}
	t := &Thresholds{
		defaultValue: defaultValue,
		perSpecies:   make(map[string]float64, len(perSpecies)),
	}
	for name, v := range perSpecies {
		t.perSpecies[fold(name)] = v
	}
	return t
}

// Get returns the threshold for species, or the default when absent.
func (t *Thresholds) Get(species string) float64 {
	if t == nil {
		return DefaultThreshold
	}
	if v, ok := t.perSpecies[fold(species)]; ok {
		return v
	}
	return t.defaultValue
}

// Default returns the threshold applied to species without an entry.
func (t *Thresholds) Default() float64 {
	if t == nil {
		return DefaultThreshold
	}
	return t.defaultValue
}

// Entries returns a copy of the per-species table keyed by lower-cased name.
func (t *Thresholds) Entries() map[string]float64 {
	return maps.Clone(t.perSpecies)
}
