// Package temporal summarizes the species recently seen by a camera and derives
// a pattern-match confidence boost.
package temporal

import (
	"time"

	"github.com/tphakala/trapwatch/internal/detection"
)

// Config holds temporal context parameters.
type Config struct {
	Window         time.Duration // Look-back window before the event timestamp
	MinRecentCount int           // Minimum detections in the window before boosting
	MaxBoost       float64       // Boost applied when the species fills the whole window
}

// DefaultConfig returns the standard parameters.
func DefaultConfig() Config {
	return Config{
		Window:         time.Hour,
		MinRecentCount: 3,
		MaxBoost:       0.10,
	}
}

// Tracker builds TemporalContext values. It is immutable and safe for concurrent use.
type Tracker struct {
	cfg       Config
	normalize func(string) string
}

// NewTracker creates a tracker. normalize canonicalizes history species; nil
// uses labels verbatim.
func NewTracker(cfg Config, normalize func(string) string) *Tracker {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinRecentCount <= 0 {
		cfg.MinRecentCount = def.MinRecentCount
	}
	if cfg.MaxBoost < 0 {
		cfg.MaxBoost = 0
	}
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	return &Tracker{cfg: cfg, normalize: normalize}
}

// Window returns the configured look-back window.
func (t *Tracker) Window() time.Duration {
	return t.cfg.Window
}

// Context summarizes the records of history inside (ts-Window, ts]. Records
// whose species normalizes to the filter sentinel are ignored.
func (t *Tracker) Context(ts time.Time, history []detection.HistoryRecord) detection.TemporalContext {
	tc := detection.TemporalContext{SpeciesCounts: map[string]int{}}
	since := ts.Add(-t.cfg.Window)

	var confSum float64
	for i := range history {
		rec := &history[i]
		if !rec.Timestamp.After(since) || rec.Timestamp.After(ts) {
			continue
		}
		species := t.normalize(rec.Species)
		if species == detection.FilteredLabel {
			continue
		}
		tc.SpeciesCounts[species]++
		tc.RecentCount++
		confSum += rec.Confidence
	}
	if tc.RecentCount == 0 {
		return tc
	}

	best := 0
	for species, n := range tc.SpeciesCounts {
		// ties resolve alphabetically for a deterministic result
		if n > best || (n == best && species < tc.MostCommonSpecies) {
			best = n
			tc.MostCommonSpecies = species
		}
	}
	tc.DominantShare = float64(best) / float64(tc.RecentCount)
	tc.AverageConfidence = confSum / float64(tc.RecentCount)
	return tc
}

// Boost returns the multiplicative confidence factor for species given tc.
// The factor is 1 + MaxBoost*DominantShare when species is the most common one
// and the window holds at least MinRecentCount detections, otherwise 1.
func (t *Tracker) Boost(species string, tc detection.TemporalContext) float64 {
	if tc.RecentCount < t.cfg.MinRecentCount || tc.MostCommonSpecies == "" || species != tc.MostCommonSpecies {
		return 1
	}
	share := detection.Clamp01(tc.DominantShare)
	return 1 + t.cfg.MaxBoost*share
}
