package winesearch

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// defaultConfidence applies when the model omits its own certainty.
const defaultConfidence = 0.5

// ParseResponse extracts the JSON object from model output text and maps
// it into a typed payload. Unknown or malformed shapes degrade to nil
// fields plus a warning; this function never fails.
func ParseResponse(text string) *Result {
	res := &Result{}

	raw := extractJSON(text)
	if raw == "" {
		res.Warnings = append(res.Warnings, "search response contained no JSON object")
		return res
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		res.Warnings = append(res.Warnings, "search response JSON is malformed")
		return res
	}

	p := &model.EnrichmentPayload{Sources: []string{model.SourceWebSearch}}

	p.Appellation = asString(doc["appellation"])
	p.ProductionMethod = asString(doc["production_method"])
	p.Overview = asString(doc["overview"])
	p.TastingNotes = asString(doc["tasting_notes"])
	p.PairingNotes = asString(doc["pairing_notes"])

	if abv, ok := asFloat(doc["abv"]); ok {
		p.ABV = &abv
	}

	if grapes, ok := doc["grapes"].([]any); ok {
		for _, g := range grapes {
			gm, ok := g.(map[string]any)
			if !ok {
				res.Warnings = append(res.Warnings, "ignored malformed grape entry")
				continue
			}
			comp := model.GrapeComponent{Variety: asString(gm["variety"])}
			if comp.Variety == "" {
				continue
			}
			if pct, ok := asFloat(gm["percent"]); ok {
				comp.Percent = &pct
			}
			p.Grapes = append(p.Grapes, comp)
		}
	}

	if w, ok := doc["drink_window"].(map[string]any); ok {
		win := model.DrinkWindow{Maturity: model.Maturity(asString(w["maturity"]))}
		if start, ok := asFloat(w["start"]); ok {
			win.Start = int(start)
		}
		if end, ok := asFloat(w["end"]); ok {
			win.End = int(end)
		}
		if win.Start != 0 || win.End != 0 {
			p.DrinkWindow = &win
		}
	}

	if scores, ok := doc["critic_scores"].([]any); ok {
		for _, s := range scores {
			sm, ok := s.(map[string]any)
			if !ok {
				res.Warnings = append(res.Warnings, "ignored malformed critic score entry")
				continue
			}
			score, ok := asFloat(sm["score"])
			if !ok {
				continue
			}
			p.CriticScores = append(p.CriticScores, model.CriticScore{
				Critic:  asString(sm["critic"]),
				Score:   score,
				Vintage: asString(sm["vintage"]),
				Source:  asString(sm["source"]),
			})
		}
	}

	if style, ok := doc["style"].(map[string]any); ok {
		p.Style = model.StyleProfile{
			Body:      model.Body(asString(style["body"])),
			Tannin:    model.Tannin(asString(style["tannin"])),
			Acidity:   model.Acidity(asString(style["acidity"])),
			Sweetness: model.Sweetness(asString(style["sweetness"])),
		}
	}

	conf := defaultConfidence
	if c, ok := asFloat(doc["confidence"]); ok {
		conf = clamp01(c)
	}
	p.Confidence = conf

	res.Payload = p
	res.Confidence = conf
	return res
}

// extractJSON returns the first balanced top-level JSON object in the
// text, tolerating markdown fences around it.
func extractJSON(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func asString(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		cleaned := strings.TrimSuffix(strings.TrimSpace(n), "%")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
