package species

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tphakala/trapwatch/internal/detection"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer(nil, nil)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"taxonomy path", "Animalia;Chordata;Mammalia;Human", "Human"},
		{"trailing delimiter", "Animalia;Chordata;Mammalia;Odocoileus;deer;", "Deer"},
		{"alias person", "person", "Human"},
		{"alias case insensitive", "CAR", "Vehicle"},
		{"alias inside taxonomy", "objects;car", "Vehicle"},
		{"filtered empty", "empty", detection.FilteredLabel},
		{"filtered multiword", "Vegetation  Only", detection.FilteredLabel},
		{"filtered background path", "none;background", detection.FilteredLabel},
		{"title case", "red fox", "Red Fox"},
		{"whitespace collapsed", "  raccoon ", "Raccoon"},
		{"blank", "", detection.UnknownLabel},
		{"only delimiters", ";;;", detection.UnknownLabel},
		{"unknown alias", "unknown", detection.UnknownLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	n := NewNormalizer(nil, nil)
	for _, in := range []string{"Animalia;Chordata;Mammalia;Human", "empty", "Deer", "x;y;z"} {
		assert.Equal(t, n.Normalize(in), n.Normalize(in))
	}
}

func TestCustomTables(t *testing.T) {
	n := NewNormalizer(map[string]string{"Doe": "Deer"}, []string{"Wind"})

	assert.Equal(t, "Deer", n.Normalize("doe"))
	assert.True(t, n.IsFiltered("WIND"))
	// defaults are replaced, not merged
	assert.Equal(t, "Person", n.Normalize("person"))
	assert.False(t, n.IsFiltered("empty"))
}

func TestNormalizerTablesAreCopied(t *testing.T) {
	aliases := map[string]string{"doe": "Deer"}
	n := NewNormalizer(aliases, nil)
	aliases["doe"] = "Elk"

	assert.Equal(t, "Deer", n.Normalize("doe"))
	n.Aliases()["doe"] = "Moose"
	assert.Equal(t, "Deer", n.Normalize("doe"))
}

func TestThresholds(t *testing.T) {
	th := NewThresholds(0, map[string]float64{"Deer": 0.15, "raccoon": 0.4})

	assert.InDelta(t, 0.15, th.Get("deer"), 0)
	assert.InDelta(t, 0.15, th.Get("DEER"), 0)
	assert.InDelta(t, 0.4, th.Get("Raccoon"), 0)
	assert.InDelta(t, DefaultThreshold, th.Get("Fox"), 0)
	assert.InDelta(t, DefaultThreshold, th.Default(), 0)

	var nilTable *Thresholds
	assert.InDelta(t, DefaultThreshold, nilTable.Get("Deer"), 0)
}
