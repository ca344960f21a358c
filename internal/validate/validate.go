package validate

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// Type-aware ABV ranges. Fortified and dessert wines permit a higher
// ceiling than table wine.
const (
	abvFloor         = 5.0
	abvCeiling       = 17.0
	abvCeilingStrong = 22.0
)

// Grape percentage sum tolerance around 100. A catch-all "other"/"blend"
// entry widens it, since such payloads are explicitly approximate.
const (
	grapeSumTolerance     = 10.0
	grapeSumToleranceWide = 20.0
)

// Narrative soft limits; exceeding them warns without truncating.
const maxNarrativeLen = 4000

// Result carries the validated payload plus accumulated warnings. Checks
// never abort: a failed check nulls the offending field and records why.
type Result struct {
	Payload  *model.EnrichmentPayload
	Warnings []string
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate applies every data-quality check to a sanitized payload. The
// identification supplies vintage and wine type context.
func Validate(p *model.EnrichmentPayload, id model.Identification) *Result {
	res := &Result{Payload: p}
	if p == nil {
		return res
	}

	res.checkABV(p, id.WineType)
	res.checkDrinkWindow(p, id.Vintage)
	res.checkCriticScores(p)
	res.checkGrapeSum(p)
	res.checkNarratives(p)

	if len(res.Warnings) > 0 {
		zap.L().Debug("validate: payload warnings",
			zap.String("wine", id.Label()),
			zap.Strings("warnings", res.Warnings),
		)
	}
	return res
}

func strongWineType(wineType string) bool {
	t := strings.ToLower(wineType)
	return strings.Contains(t, model.WineTypeFortified) ||
		strings.Contains(t, model.WineTypeDessert) ||
		strings.Contains(t, "port") || strings.Contains(t, "sherry") ||
		strings.Contains(t, "madeira")
}

func (r *Result) checkABV(p *model.EnrichmentPayload, wineType string) {
	if p.ABV == nil {
		return
	}
	ceiling := abvCeiling
	if strongWineType(wineType) {
		ceiling = abvCeilingStrong
	}
	if *p.ABV < abvFloor || *p.ABV > ceiling {
		r.warnf("alcohol %.1f%% outside plausible range [%.0f, %.0f], dropped", *p.ABV, abvFloor, ceiling)
		p.ABV = nil
	}
}

func (r *Result) checkDrinkWindow(p *model.EnrichmentPayload, vintage string) {
	w := p.DrinkWindow
	if w == nil {
		return
	}

	// An inverted window is discarded whole, never partially repaired.
	if w.Start != 0 && w.End != 0 && w.End < w.Start {
		r.warnf("drink window %d-%d is inverted, dropped", w.Start, w.End)
		p.DrinkWindow = nil
		return
	}

	if v, err := strconv.Atoi(vintage); err == nil && w.Start != 0 && w.Start < v-1 {
		r.warnf("drink window starts %d, more than a year before vintage %d, dropped", w.Start, v)
		p.DrinkWindow = nil
	}
}

func (r *Result) checkCriticScores(p *model.EnrichmentPayload) {
	if len(p.CriticScores) == 0 {
		return
	}
	kept := p.CriticScores[:0]
	for _, s := range p.CriticScores {
		if s.Score < 50 || s.Score > 100 {
			r.warnf("critic score %.0f from %q outside 100-point scale, dropped", s.Score, s.Critic)
			continue
		}
		if s.Critic == "" {
			r.warnf("critic score %.0f missing critic name, dropped", s.Score)
			continue
		}
		kept = append(kept, s)
	}
	p.CriticScores = kept
}

func (r *Result) checkGrapeSum(p *model.EnrichmentPayload) {
	if len(p.Grapes) == 0 {
		return
	}

	var sum float64
	var counted int
	hasCatchAll := false
	for _, g := range p.Grapes {
		low := strings.ToLower(g.Variety)
		if strings.Contains(low, "other") || strings.Contains(low, "blend") {
			hasCatchAll = true
		}
		if g.Percent != nil {
			sum += *g.Percent
			counted++
		}
	}
	// Only meaningful when every listed component carries a percentage.
	if counted == 0 || counted < len(p.Grapes) {
		return
	}

	tolerance := grapeSumTolerance
	if hasCatchAll {
		tolerance = grapeSumToleranceWide
	}
	if sum < 100-tolerance || sum > 100+tolerance {
		r.warnf("grape percentages sum to %.0f%%, expected 100±%.0f", sum, tolerance)
	}
}

func (r *Result) checkNarratives(p *model.EnrichmentPayload) {
	for name, text := range map[string]string{
		"overview":      p.Overview,
		"tasting_notes": p.TastingNotes,
		"pairing_notes": p.PairingNotes,
	} {
		if len(text) > maxNarrativeLen {
			r.warnf("%s unusually long (%d chars)", name, len(text))
		}
	}
}
