package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExpander(t *testing.T) *Expander {
	t.Helper()
	rules, err := DefaultAbbreviations()
	require.NoError(t, err)
	exp, err := NewExpander(rules)
	require.NoError(t, err)
	return exp
}

func TestExpand(t *testing.T) {
	exp := newTestExpander(t)

	tests := []struct {
		name     string
		input    string
		scope    Scope
		expected string
		changed  bool
	}{
		{
			name:     "chateau abbreviation",
			input:    "Ch. Margaux",
			scope:    ScopeProducer,
			expected: "Château Margaux",
			changed:  true,
		},
		{
			name:     "domaine abbreviation",
			input:    "Dom. Leflaive",
			scope:    ScopeProducer,
			expected: "Domaine Leflaive",
			changed:  true,
		},
		{
			name:     "grape abbreviation in wine scope",
			input:    "Cab Sauv Reserve",
			scope:    ScopeWine,
			expected: "Cabernet Sauvignon Reserve",
			changed:  true,
		},
		{
			name:     "premier cru",
			input:    "Meursault 1er Cru",
			scope:    ScopeWine,
			expected: "Meursault Premier Cru",
			changed:  true,
		},
		{
			name:     "saint applies in both scopes",
			input:    "St. Estephe",
			scope:    ScopeWine,
			expected: "Saint Estephe",
			changed:  true,
		},
		{
			name:     "producer rule ignored in wine scope",
			input:    "Ch. Margaux",
			scope:    ScopeWine,
			expected: "Ch. Margaux",
			changed:  false,
		},
		{
			name:     "case insensitive match",
			input:    "ch. margaux",
			scope:    ScopeProducer,
			expected: "Château margaux",
			changed:  true,
		},
		{
			name:     "no abbreviation present",
			input:    "Penfolds Grange",
			scope:    ScopeProducer,
			expected: "Penfolds Grange",
			changed:  false,
		},
		{
			name:     "pattern not matched mid-word",
			input:    "Pinot Noir",
			scope:    ScopeWine,
			expected: "Pinot Noir",
			changed:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed := exp.Expand(tt.input, tt.scope)
			assert.Equal(t, tt.expected, out)
			assert.Equal(t, tt.changed, changed)
		})
	}
}

func TestExpanderPriorityOrder(t *testing.T) {
	rules := []Abbreviation{
		{Pattern: "St.", Expansion: "Saint", Scope: ScopeBoth, Priority: 5},
		{Pattern: "Ste.", Expansion: "Sainte", Scope: ScopeBoth, Priority: 6},
	}
	exp, err := NewExpander(rules)
	require.NoError(t, err)

	// The higher-priority, longer pattern must win before "St." can
	// mangle the prefix.
	out, changed := exp.Expand("Ste. Michelle", ScopeProducer)
	assert.True(t, changed)
	assert.Equal(t, "Sainte Michelle", out)
}

func TestNewExpanderSkipsBlankRules(t *testing.T) {
	exp, err := NewExpander([]Abbreviation{
		{Pattern: "", Expansion: "x"},
		{Pattern: "y", Expansion: ""},
	})
	require.NoError(t, err)

	out, changed := exp.Expand("y", ScopeBoth)
	assert.False(t, changed)
	assert.Equal(t, "y", out)
}
