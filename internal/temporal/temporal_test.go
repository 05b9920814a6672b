package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/trapwatch/internal/detection"
)

var now = time.Date(2026, 5, 1, 21, 0, 0, 0, time.UTC)

func rec(species string, ago time.Duration, conf float64) detection.HistoryRecord {
	return detection.HistoryRecord{CameraID: "7", Species: species, Timestamp: now.Add(-ago), Confidence: conf}
}

func TestContextSummarizesWindow(t *testing.T) {
	tr := NewTracker(DefaultConfig(), nil)
	history := []detection.HistoryRecord{
		rec("Raccoon", 5*time.Minute, 0.9),
		rec("Raccoon", 10*time.Minute, 0.7),
		rec("Deer", 20*time.Minute, 0.5),
		rec("Raccoon", 59*time.Minute, 0.6),
		rec("Raccoon", time.Hour, 0.9),   // on the window edge, excluded
		rec("Deer", 3*time.Hour, 0.9),    // outside
		rec("Deer", -1*time.Minute, 0.9), // after the event
	}

	tc := tr.Context(now, history)

	assert.Equal(t, 4, tc.RecentCount)
	assert.Equal(t, "Raccoon", tc.MostCommonSpecies)
	assert.Equal(t, map[string]int{"Raccoon": 3, "Deer": 1}, tc.SpeciesCounts)
	assert.InDelta(t, 0.75, tc.DominantShare, 1e-12)
	assert.InDelta(t, 0.675, tc.AverageConfidence, 1e-12)
}

func TestContextEmptyHistory(t *testing.T) {
	tc := NewTracker(DefaultConfig(), nil).Context(now, nil)

	assert.Equal(t, 0, tc.RecentCount)
	assert.Empty(t, tc.MostCommonSpecies)
	assert.NotNil(t, tc.SpeciesCounts)
	assert.InDelta(t, 0, tc.AverageConfidence, 0)
}

func TestContextTieBreaksAlphabetically(t *testing.T) {
	tr := NewTracker(DefaultConfig(), nil)
	history := []detection.HistoryRecord{
		rec("Raccoon", time.Minute, 0.5),
		rec("Deer", 2*time.Minute, 0.5),
	}

	for range 10 {
		assert.Equal(t, "Deer", tr.Context(now, history).MostCommonSpecies)
	}
}

func TestContextSkipsFiltered(t *testing.T) {
	tr := NewTracker(DefaultConfig(), func(s string) string {
		if s == "empty" {
			return detection.FilteredLabel
		}
		return s
	})

	tc := tr.Context(now, []detection.HistoryRecord{rec("empty", time.Minute, 0.9), rec("Fox", time.Minute, 0.4)})

	assert.Equal(t, 1, tc.RecentCount)
	assert.Equal(t, "Fox", tc.MostCommonSpecies)
}

func TestBoost(t *testing.T) {
	tr := NewTracker(DefaultConfig(), nil)
	dominant := detection.TemporalContext{RecentCount: 4, MostCommonSpecies: "Raccoon", DominantShare: 0.75}
	full := detection.TemporalContext{RecentCount: 3, MostCommonSpecies: "Raccoon", DominantShare: 1}
	sparse := detection.TemporalContext{RecentCount: 2, MostCommonSpecies: "Raccoon", DominantShare: 1}

	assert.InDelta(t, 1.075, tr.Boost("Raccoon", dominant), 1e-12)
	assert.InDelta(t, 1.10, tr.Boost("Raccoon", full), 1e-12)
	assert.InDelta(t, 1, tr.Boost("Deer", dominant), 0)
	assert.InDelta(t, 1, tr.Boost("Raccoon", sparse), 0)
	assert.InDelta(t, 1, tr.Boost("Raccoon", detection.TemporalContext{}), 0)
}
