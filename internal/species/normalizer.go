// Package species canonicalizes raw classifier labels and holds per-species save thresholds.
package species

import (
	"maps"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tphakala/trapwatch/internal/detection"
)

// TaxonomyDelimiter separates ranks in hierarchical labels such as
// "Animalia;Chordata;Mammalia;Human".
const TaxonomyDelimiter = ";"

// DefaultAliases maps common classifier aliases to canonical names.
func DefaultAliases() map[string]string {
	return map[string]string{
		"person":     "Human",
		"people":     "Human",
		"human":      "Human",
		"car":        "Vehicle",
		"truck":      "Vehicle",
		"vehicle":    "Vehicle",
		"motorcycle": "Vehicle",
		"bicycle":    "Vehicle",
		"unknown":    detection.UnknownLabel,
	}
}

// DefaultFilters lists labels that denote a frame without a subject.
func DefaultFilters() []string {
	return []string{"empty", "blank", "background", "vegetation only", "vegetation", "no animal"}
}

// Normalizer maps raw labels to canonical species names. It is immutable after
// construction and safe for concurrent use.
type Normalizer struct {
	aliases map[string]string
	filters map[string]struct{}
}

// NewNormalizer creates a normalizer. Alias keys and filter entries are matched
// case-insensitively. Nil arguments select the defaults.
func NewNormalizer(aliases map[string]string, filters []string) *Normalizer {
	if aliases == nil {
		aliases = DefaultAliases()
	}
	if filters == nil {
		filters = DefaultFilters()
	}

	n := &Normalizer{
		aliases: make(map[string]string, len(aliases)),
		filters: make(map[string]struct{}, len(filters)),
	}
	for k, v := range aliases {
		n.aliases[fold(k)] = strings.TrimSpace(v)
	}
	for _, f := range filters {
		n.filters[fold(f)] = struct{}{}
	}
	return n
}

// Normalize returns the canonical label for raw, detection.FilteredLabel for
// known non-detections, or detection.UnknownLabel for blank input.
func (n *Normalizer) Normalize(raw string) string {
	label := lastSegment(raw)
	if label == "" {
		return detection.UnknownLabel
	}

	key := fold(label)
	alias, aliased := n.aliases[key]
	if aliased && alias != "" {
		label = alias
		key = fold(alias)
	}
	if _, filtered := n.filters[key]; filtered {
		return detection.FilteredLabel
	}
	if aliased && alias != "" {
		return alias
	}
	return titleCase(label)
}

// IsFiltered reports whether raw normalizes to the filter sentinel.
func (n *Normalizer) IsFiltered(raw string) bool {
	return n.Normalize(raw) == detection.FilteredLabel
}

// Aliases returns a copy of the alias table with folded keys.
func (n *Normalizer) Aliases() map[string]string {
	return maps.Clone(n.aliases)
}

func lastSegment(raw string) string {
	parts := strings.Split(raw, TaxonomyDelimiter)
	for i := len(parts) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(parts[i]); s != "" {
			return s
		}
	}
	return ""
}

func fold(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// titleCase allocates a new Caser per call; Casers are not safe for concurrent use.
func titleCase(s string) string {
	return cases.Title(language.English).String(strings.Join(strings.Fields(s), " "))
}
