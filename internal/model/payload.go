package model

// GrapeComponent is one variety in a blend. Percent is nil when the source
// gives the variety without a share.
type GrapeComponent struct {
	Variety string   `json:"variety"`
	Percent *float64 `json:"percent,omitempty"`
}

// DrinkWindow is the recommended drinking range in vintage years.
type DrinkWindow struct {
	Start    int      `json:"start,omitempty"`
	End      int      `json:"end,omitempty"`
	Maturity Maturity `json:"maturity,omitempty"`
}

// CriticScore is a single published rating on the 100-point scale.
type CriticScore struct {
	Critic  string  `json:"critic"`
	Score   float64 `json:"score"`
	Vintage string  `json:"vintage,omitempty"`
	Source  string  `json:"source,omitempty"`
}

// Attributed reports whether the score carries a source attribution.
func (c CriticScore) Attributed() bool { return c.Source != "" }

// StyleProfile holds the four fixed-vocabulary style axes. Empty values
// mean the axis is unknown.
type StyleProfile struct {
	Body      Body      `json:"body,omitempty"`
	Tannin    Tannin    `json:"tannin,omitempty"`
	Acidity   Acidity   `json:"acidity,omitempty"`
	Sweetness Sweetness `json:"sweetness,omitempty"`
}

// Empty reports whether no style axis is set.
func (s StyleProfile) Empty() bool {
	return s.Body == "" && s.Tannin == "" && s.Acidity == "" && s.Sweetness == ""
}

// EnrichmentPayload is the full metadata record attached to a wine.
// Pointer and slice fields are nil when unknown so the merger can
// distinguish "absent" from zero values.
type EnrichmentPayload struct {
	Grapes           []GrapeComponent `json:"grapes,omitempty"`
	Appellation      string           `json:"appellation,omitempty"`
	ABV              *float64         `json:"abv,omitempty"`
	DrinkWindow      *DrinkWindow     `json:"drink_window,omitempty"`
	ProductionMethod string           `json:"production_method,omitempty"`
	CriticScores     []CriticScore    `json:"critic_scores,omitempty"`
	Style            StyleProfile     `json:"style,omitempty"`
	Overview         string           `json:"overview,omitempty"`
	TastingNotes     string           `json:"tasting_notes,omitempty"`
	PairingNotes     string           `json:"pairing_notes,omitempty"`
	Confidence       float64          `json:"confidence"`
	Sources          []string         `json:"sources,omitempty"`
}

// IsZero reports whether the payload carries no enrichment fields at all
// (confidence and sources aside).
func (p *EnrichmentPayload) IsZero() bool {
	if p == nil {
		return true
	}
	return len(p.Grapes) == 0 && p.Appellation == "" && p.ABV == nil &&
		p.DrinkWindow == nil && p.ProductionMethod == "" &&
		len(p.CriticScores) == 0 && p.Style.Empty() &&
		p.Overview == "" && p.TastingNotes == "" && p.PairingNotes == ""
}
