package model

// Data source tags used in result envelopes and fieldSources maps.
const (
	SourceCache     = "cache"
	SourceWebSearch = "web_search"
	SourceInference = "inference"
	SourceDefault   = "default"
)

// MatchType identifies which resolution tier produced a hit.
type MatchType string

const (
	MatchExact        MatchType = "exact"
	MatchAbbreviation MatchType = "abbreviation"
	MatchAlias        MatchType = "alias"
	MatchFuzzy        MatchType = "fuzzy"
)

// EnrichmentResult is the structured envelope every enrich call returns.
// Exactly one of three shapes applies:
//   - success with Data and Source set,
//   - success with PendingConfirmation set and Data withheld,
//   - failure with Success=false and at least one warning.
type EnrichmentResult struct {
	Success      bool               `json:"success"`
	Data         *EnrichmentPayload `json:"data,omitempty"`
	Source       string             `json:"source,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`
	FieldSources map[string]string  `json:"field_sources,omitempty"`

	PendingConfirmation bool      `json:"pending_confirmation,omitempty"`
	MatchType           MatchType `json:"match_type,omitempty"`
	SearchedFor         string    `json:"searched_for,omitempty"`
	MatchedTo           string    `json:"matched_to,omitempty"`
	Confidence          float64   `json:"confidence,omitempty"`
}
