package validate

import (
	"strings"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// Hallucination heuristics. Search-grounded retrieval occasionally invents
// plausible-looking data; these checks shave confidence without ever
// discarding the record, so downstream thresholds make the final call.
const (
	identicalScoresMultiplier  = 0.8
	placeholderNameMultiplier  = 0.7
	roundWindowMultiplier      = 0.85
	roundWindowBaselineCeiling = 0.6
)

var placeholderCriticNames = []string{
	"wine expert", "wine critic", "expert", "critic", "reviewer",
	"sommelier", "various", "unknown", "anonymous",
}

// ApplyHallucinationHeuristics inspects a validated payload and multiplies
// its confidence downward for each suspicious pattern found. Returns the
// warnings describing what was detected.
func ApplyHallucinationHeuristics(p *model.EnrichmentPayload) []string {
	if p == nil {
		return nil
	}
	var warnings []string

	// Several critics landing on the exact same score smells fabricated.
	if n := maxIdenticalScores(p.CriticScores); n >= 3 {
		p.Confidence *= identicalScoresMultiplier
		warnings = append(warnings, "multiple critic scores are suspiciously identical")
	}

	for _, s := range p.CriticScores {
		if isPlaceholderCritic(s.Critic) {
			p.Confidence *= placeholderNameMultiplier
			warnings = append(warnings, "critic name \""+s.Critic+"\" looks like a placeholder")
			break
		}
	}

	// A conveniently round window with no attribution, on an already shaky
	// payload, is more likely invented than sourced.
	if w := p.DrinkWindow; w != nil && p.Confidence < roundWindowBaselineCeiling {
		if w.Start%5 == 0 && w.End%5 == 0 && !windowAttributed(p) {
			p.Confidence *= roundWindowMultiplier
			warnings = append(warnings, "unattributed round-number drink window on low-confidence payload")
		}
	}

	return warnings
}

func maxIdenticalScores(scores []model.CriticScore) int {
	counts := make(map[float64]int, len(scores))
	max := 0
	for _, s := range scores {
		counts[s.Score]++
		if counts[s.Score] > max {
			max = counts[s.Score]
		}
	}
	return max
}

func isPlaceholderCritic(name string) bool {
	low := strings.ToLower(strings.TrimSpace(name))
	for _, p := range placeholderCriticNames {
		if low == p {
			return true
		}
	}
	return false
}

func windowAttributed(p *model.EnrichmentPayload) bool {
	for _, src := range p.Sources {
		if src != "" {
			return true
		}
	}
	return false
}
