// Package enrich composes resolution, retrieval, validation, inference,
// and merging into the public enrichment operation.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cellarbook/enrich-cli/internal/cache"
	"github.com/cellarbook/enrich-cli/internal/infer"
	"github.com/cellarbook/enrich-cli/internal/merge"
	"github.com/cellarbook/enrich-cli/internal/model"
	"github.com/cellarbook/enrich-cli/internal/resilience"
	"github.com/cellarbook/enrich-cli/internal/resolver"
	"github.com/cellarbook/enrich-cli/internal/validate"
	"github.com/cellarbook/enrich-cli/pkg/winesearch"
)

// Confidence cutoffs. The store decision and the merge decision gate
// different risks, so they stay separate constants rather than one
// collapsed knob. The resolver's acceptance threshold lives in
// resolver.Config.
const (
	// StoreMinConfidence gates write-through: fresh data below it is
	// served but never cached, so the cache cannot be poisoned.
	StoreMinConfidence = 0.45

	// MergeWorthyConfidence gates the fallback inferencer: fresh data at
	// or above it makes reference-table inference unnecessary.
	MergeWorthyConfidence = 0.35
)

const noIdentificationWarning = "No producer or wine name provided"

// Options are the caller-controlled flags on a single enrich call.
type Options struct {
	// ConfirmMatch releases a non-exact resolution on a repeat call.
	ConfirmMatch bool
	// ForceRefresh skips resolution and always performs the external call.
	ForceRefresh bool
}

// Config holds the engine's thresholds and freshness policy.
type Config struct {
	StoreMin float64         `yaml:"store_min_confidence" mapstructure:"store_min_confidence"`
	MergeMin float64         `yaml:"merge_min_confidence" mapstructure:"merge_min_confidence"`
	TTL      cache.TTLConfig `yaml:"ttl" mapstructure:"ttl"`
}

// DefaultConfig returns the stock engine thresholds.
func DefaultConfig() Config {
	return Config{
		StoreMin: StoreMinConfidence,
		MergeMin: MergeWorthyConfidence,
		TTL:      cache.DefaultTTL(),
	}
}

// Engine is the resolution orchestrator. Execution is request-scoped and
// synchronous; the external search call is the only slow step and no
// exclusive resource is held across it.
type Engine struct {
	store      cache.Store
	resolver   *resolver.Resolver
	searcher   winesearch.Searcher
	inferencer *infer.Inferencer
	cfg        Config
	now        func() time.Time
}

// New wires an engine from its collaborators.
func New(store cache.Store, res *resolver.Resolver, searcher winesearch.Searcher, inf *infer.Inferencer, cfg Config) *Engine {
	if cfg.StoreMin <= 0 {
		cfg.StoreMin = StoreMinConfidence
	}
	if cfg.MergeMin <= 0 {
		cfg.MergeMin = MergeWorthyConfidence
	}
	if cfg.TTL == (cache.TTLConfig{}) {
		cfg.TTL = cache.DefaultTTL()
	}
	return &Engine{
		store:      store,
		resolver:   res,
		searcher:   searcher,
		inferencer: inf,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithNow fixes the clock for tests.
func (e *Engine) WithNow(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Enrich resolves, fetches, validates, and merges metadata for one wine.
// It always returns a structured result; errors from collaborators are
// downgraded to warnings whenever any data channel can still answer.
func (e *Engine) Enrich(ctx context.Context, id model.Identification, opts Options) *model.EnrichmentResult {
	if id.Empty() {
		return &model.EnrichmentResult{Success: false, Warnings: []string{noIdentificationWarning}}
	}

	var warnings []string
	rawKey := resolver.BuildKey(id.Producer, id.WineName, id.Vintage)

	// Stale record kept aside for the merge fallback channel.
	var staleRecord *cache.Record

	if !opts.ForceRefresh {
		res, err := e.resolver.Resolve(ctx, id)
		if err != nil {
			zap.L().Warn("enrich: resolution failed, falling through to fetch",
				zap.String("key", rawKey), zap.Error(err))
			warnings = append(warnings, "cache resolution failed: "+err.Error())
		}
		if res != nil {
			if res.Exact() || opts.ConfirmMatch {
				return e.serveCached(ctx, res, warnings)
			}
			// Non-exact hit without confirmation: expose the match and
			// stop. The caller re-invokes with ConfirmMatch to proceed;
			// the round-trip is idempotent, not session state.
			return &model.EnrichmentResult{
				Success:             true,
				PendingConfirmation: true,
				MatchType:           res.MatchType,
				SearchedFor:         res.SearchedKey,
				MatchedTo:           res.MatchedKey,
				Confidence:          res.Confidence,
			}
		}
	}

	// Any stored record, fresh or stale, is still a merge channel.
	if rec, err := e.store.Get(ctx, rawKey); err == nil && rec != nil {
		staleRecord = rec
	}

	fresh, fetchWarnings := e.fetch(ctx, id, rawKey)
	warnings = append(warnings, fetchWarnings...)

	// Inference only runs when fresh data is absent or not merge-worthy,
	// avoiding pointless reference lookups.
	var inferred *model.EnrichmentPayload
	if fresh == nil || fresh.Confidence < e.cfg.MergeMin {
		inferred = e.inferencer.Infer(id)
	}

	inputs := make([]merge.Input, 0, 3)
	if fresh != nil {
		inputs = append(inputs, merge.Input{Source: model.SourceWebSearch, Payload: fresh})
	}
	if staleRecord != nil {
		p := staleRecord.Payload
		inputs = append(inputs, merge.Input{Source: model.SourceCache, Payload: &p})
	}
	if inferred != nil {
		inputs = append(inputs, merge.Input{Source: model.SourceInference, Payload: inferred})
	}

	if len(inputs) == 0 {
		warnings = append(warnings, "no enrichment data available from any source")
		return &model.EnrichmentResult{Success: false, Warnings: warnings}
	}

	merged := merge.Merge(inputs...)
	return &model.EnrichmentResult{
		Success:      true,
		Data:         &merged.Payload,
		Source:       merged.DominantSource,
		Warnings:     warnings,
		FieldSources: merged.FieldSources,
	}
}

// serveCached returns a resolved record without touching the network.
func (e *Engine) serveCached(ctx context.Context, res *resolver.Resolution, warnings []string) *model.EnrichmentResult {
	if err := e.store.IncrementHit(ctx, res.Record.Key); err != nil {
		zap.L().Warn("enrich: increment hit failed",
			zap.String("key", res.Record.Key), zap.Error(err))
	}

	payload := res.Record.Payload
	merged := merge.Merge(merge.Input{Source: model.SourceCache, Payload: &payload})

	zap.L().Info("enrich: cache hit",
		zap.String("key", res.Record.Key),
		zap.String("match_type", string(res.MatchType)),
		zap.Int("hit_count", res.Record.HitCount+1),
	)

	return &model.EnrichmentResult{
		Success:      true,
		Data:         &merged.Payload,
		Source:       model.SourceCache,
		Warnings:     warnings,
		FieldSources: merged.FieldSources,
	}
}

// fetch performs the external knowledge-retrieval call, then sanitizes,
// validates, and conditionally writes through to the cache. A failed call
// is reported as warnings, never as an error: cache and inference may
// still answer.
func (e *Engine) fetch(ctx context.Context, id model.Identification, rawKey string) (*model.EnrichmentPayload, []string) {
	var warnings []string

	result, err := resilience.DoVal(ctx, searchRetry(), func(ctx context.Context) (*winesearch.Result, error) {
		return e.searcher.Search(ctx, id.Producer, id.WineName, id.Vintage)
	})
	if err != nil {
		zap.L().Warn("enrich: external search failed",
			zap.String("wine", id.Label()), zap.Error(err))
		warnings = append(warnings, "web search failed: "+eris.Cause(err).Error())
		return nil, warnings
	}
	warnings = append(warnings, result.Warnings...)

	if result.Payload == nil || result.Payload.IsZero() {
		warnings = append(warnings, "web search returned no usable data")
		return nil, warnings
	}

	fresh := result.Payload
	validate.Sanitize(fresh, e.now())
	vres := validate.Validate(fresh, id)
	warnings = append(warnings, vres.Warnings...)
	warnings = append(warnings, validate.ApplyHallucinationHeuristics(fresh)...)

	if fresh.Confidence >= e.cfg.StoreMin {
		if _, err := e.store.Set(ctx, rawKey, *fresh); err != nil {
			zap.L().Warn("enrich: cache write-through failed",
				zap.String("key", rawKey), zap.Error(err))
			warnings = append(warnings, "cache write failed: "+err.Error())
		}
	} else {
		zap.L().Debug("enrich: fresh data below store minimum, not cached",
			zap.String("key", rawKey),
			zap.Float64("confidence", fresh.Confidence),
		)
	}

	return fresh, warnings
}

func searchRetry() resilience.RetryConfig {
	cfg := resilience.SearchRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("winesearch", "search")
	return cfg
}
