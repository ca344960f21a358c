// Package merge combines fresh, cached, and inferred enrichment payloads
// under a strict priority policy with per-field provenance.
package merge

import (
	"math"
	"sort"
	"strings"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// scoreDiffPreferFresh is the critic-score disagreement above which the
// fresher entry wins outright; at or below it the higher score is kept.
const scoreDiffPreferFresh = 2.0

// Input is one prioritized payload channel. Channels are evaluated in the
// order given; the caller supplies fresh > cache > inference.
type Input struct {
	Source  string
	Payload *model.EnrichmentPayload
}

// Output is the merged payload plus provenance.
type Output struct {
	Payload        model.EnrichmentPayload
	FieldSources   map[string]string
	DominantSource string
}

// Merge resolves up to three channels field by field. Scalar fields take
// the first non-empty channel in priority order. Composite fields (grape
// list, drink window) are replaced whole, never spliced across sources.
// Critic scores are unioned with collision rules.
func Merge(inputs ...Input) *Output {
	out := &Output{FieldSources: make(map[string]string)}

	// Drop empty channels, keep order.
	channels := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		if in.Payload != nil {
			channels = append(channels, in)
		}
	}
	if len(channels) == 0 {
		return out
	}

	out.Payload.Appellation = pickString(out, "appellation", channels, func(p *model.EnrichmentPayload) string { return p.Appellation })
	out.Payload.ProductionMethod = pickString(out, "production_method", channels, func(p *model.EnrichmentPayload) string { return p.ProductionMethod })
	out.Payload.Overview = pickString(out, "overview", channels, func(p *model.EnrichmentPayload) string { return p.Overview })
	out.Payload.TastingNotes = pickString(out, "tasting_notes", channels, func(p *model.EnrichmentPayload) string { return p.TastingNotes })
	out.Payload.PairingNotes = pickString(out, "pairing_notes", channels, func(p *model.EnrichmentPayload) string { return p.PairingNotes })

	for _, ch := range channels {
		if ch.Payload.ABV != nil {
			v := *ch.Payload.ABV
			out.Payload.ABV = &v
			out.FieldSources["abv"] = ch.Source
			break
		}
	}

	// Composites: whole-object replacement in priority order.
	for _, ch := range channels {
		if len(ch.Payload.Grapes) > 0 {
			out.Payload.Grapes = append([]model.GrapeComponent(nil), ch.Payload.Grapes...)
			out.FieldSources["grapes"] = ch.Source
			break
		}
	}
	for _, ch := range channels {
		if ch.Payload.DrinkWindow != nil {
			w := *ch.Payload.DrinkWindow
			out.Payload.DrinkWindow = &w
			out.FieldSources["drink_window"] = ch.Source
			break
		}
	}
	for _, ch := range channels {
		if !ch.Payload.Style.Empty() {
			out.Payload.Style = ch.Payload.Style
			out.FieldSources["style"] = ch.Source
			break
		}
	}

	out.Payload.CriticScores = mergeCriticScores(out, channels)

	// Confidence follows the highest-priority contributing channel; source
	// tags are unioned across all of them.
	out.Payload.Confidence = channels[0].Payload.Confidence
	seen := make(map[string]bool)
	for _, ch := range channels {
		for _, tag := range ch.Payload.Sources {
			if tag != "" && !seen[tag] {
				seen[tag] = true
				out.Payload.Sources = append(out.Payload.Sources, tag)
			}
		}
	}

	out.DominantSource = dominant(out.FieldSources, channels)
	return out
}

func pickString(out *Output, field string, channels []Input, get func(*model.EnrichmentPayload) string) string {
	for _, ch := range channels {
		if v := get(ch.Payload); v != "" {
			out.FieldSources[field] = ch.Source
			return v
		}
	}
	return ""
}

type scoreKey struct {
	critic  string
	vintage string
}

// mergeCriticScores unions scores across channels, de-duplicated by
// (critic, vintage). On collision: an attributed entry beats an
// unattributed one; otherwise the higher-priority channel wins when scores
// differ by more than scoreDiffPreferFresh points, else the higher score
// is kept.
func mergeCriticScores(out *Output, channels []Input) []model.CriticScore {
	best := make(map[scoreKey]model.CriticScore)
	var order []scoreKey
	var firstSource string

	for _, ch := range channels {
		for _, s := range ch.Payload.CriticScores {
			k := scoreKey{critic: strings.ToLower(s.Critic), vintage: s.Vintage}
			existing, ok := best[k]
			if !ok {
				if firstSource == "" {
					firstSource = ch.Source
				}
				best[k] = s
				order = append(order, k)
				continue
			}
			// Existing entry came from a higher-priority channel.
			switch {
			case existing.Attributed() && !s.Attributed():
				// keep existing
			case s.Attributed() && !existing.Attributed():
				best[k] = s
			case math.Abs(existing.Score-s.Score) > scoreDiffPreferFresh:
				// keep existing (the fresher channel)
			case s.Score > existing.Score:
				best[k] = s
			}
		}
	}

	if len(order) == 0 {
		return nil
	}
	merged := make([]model.CriticScore, 0, len(order))
	for _, k := range order {
		merged = append(merged, best[k])
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Critic < merged[j].Critic })
	out.FieldSources["critic_scores"] = firstSource
	return merged
}

// dominant picks the channel contributing the most fields, breaking ties
// by priority order.
func dominant(fieldSources map[string]string, channels []Input) string {
	if len(fieldSources) == 0 {
		if len(channels) > 0 {
			return channels[0].Source
		}
		return ""
	}
	counts := make(map[string]int)
	for _, src := range fieldSources {
		counts[src]++
	}
	bestSrc, bestCount := "", -1
	for _, ch := range channels {
		if counts[ch.Source] > bestCount {
			bestSrc, bestCount = ch.Source, counts[ch.Source]
		}
	}
	return bestSrc
}
