package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarbook/enrich-cli/internal/model"
)

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "html tags",
			input:    "<p>A <b>bold</b> wine</p>",
			expected: "A bold wine",
		},
		{
			name:     "markdown link keeps text",
			input:    "Rated highly by [Wine Advocate](https://example.com)",
			expected: "Rated highly by Wine Advocate",
		},
		{
			name:     "emphasis and headers",
			input:    "## Overview\n**Powerful** and *elegant*",
			expected: "Overview\nPowerful and elegant",
		},
		{
			name:     "collapsed whitespace",
			input:    "too   many    spaces",
			expected: "too many spaces",
		},
		{
			name:     "plain text untouched",
			input:    "A classic Margaux.",
			expected: "A classic Margaux.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripMarkup(tt.input))
		})
	}
}

func TestMapStyleVocabularies(t *testing.T) {
	assert.Equal(t, model.BodyFull, MapBody("Full-bodied"))
	assert.Equal(t, model.BodyLight, MapBody("light and delicate"))
	assert.Equal(t, model.Body(""), MapBody("weird descriptor"))

	assert.Equal(t, model.TanninHigh, MapTannin("firm, grippy tannins"))
	assert.Equal(t, model.TanninLow, MapTannin("silky"))

	assert.Equal(t, model.AcidityHigh, MapAcidity("crisp"))
	assert.Equal(t, model.AcidityMedium, MapAcidity("well balanced"))

	// Ordering matters: "off-dry" must not fall through to "dry".
	assert.Equal(t, model.SweetnessOffDry, MapSweetness("Off-Dry"))
	assert.Equal(t, model.SweetnessDry, MapSweetness("bone dry"))
	assert.Equal(t, model.SweetnessDry, MapSweetness("brut"))
	assert.Equal(t, model.SweetnessLuscious, MapSweetness("unctuous"))
}

func TestSanitize(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	high := 45.0
	p := &model.EnrichmentPayload{
		Overview:    "<b>Great</b> wine",
		Appellation: " Margaux ",
		ABV:         &high,
		DrinkWindow: &model.DrinkWindow{Start: 1850, End: 2150},
		Style: model.StyleProfile{
			Body:      "full-bodied and rich",
			Tannin:    "firm",
			Acidity:   "racy",
			Sweetness: "dry",
		},
		Grapes:       []model.GrapeComponent{{Variety: "  Merlot "}},
		CriticScores: []model.CriticScore{{Critic: " Decanter ", Score: 95}},
	}

	Sanitize(p, now)

	assert.Equal(t, "Great wine", p.Overview)
	assert.Equal(t, "Margaux", p.Appellation)
	require.NotNil(t, p.ABV)
	assert.Equal(t, 30.0, *p.ABV)
	assert.Equal(t, 1900, p.DrinkWindow.Start)
	assert.Equal(t, 2086, p.DrinkWindow.End)
	assert.Equal(t, model.BodyFull, p.Style.Body)
	assert.Equal(t, model.TanninHigh, p.Style.Tannin)
	assert.Equal(t, model.AcidityHigh, p.Style.Acidity)
	assert.Equal(t, model.SweetnessDry, p.Style.Sweetness)
	assert.Equal(t, "Merlot", p.Grapes[0].Variety)
	assert.Equal(t, "Decanter", p.CriticScores[0].Critic)
}

func TestSanitizeNil(t *testing.T) {
	assert.NotPanics(t, func() { Sanitize(nil, time.Now()) })
}
