package resolver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cellarbook/enrich-cli/internal/cache"
	"github.com/cellarbook/enrich-cli/internal/model"
)

// Config holds the resolver's tunable thresholds.
type Config struct {
	// AcceptConfidence is the minimum combined fuzzy score to accept a
	// candidate at all (and the floor for learning an alias).
	AcceptConfidence float64 `yaml:"accept_confidence" mapstructure:"accept_confidence"`
	// ProducerFloor is the minimum producer similarity for a fuzzy candidate.
	ProducerFloor float64 `yaml:"producer_floor" mapstructure:"producer_floor"`
	// WineFloor is the minimum wine-name similarity. Deliberately stricter
	// than ProducerFloor: two different wines from one producer often share
	// a suffix and would otherwise false-positive.
	WineFloor float64 `yaml:"wine_floor" mapstructure:"wine_floor"`
	// PopularityFloor restricts fuzzy candidates to records with at least
	// this many hits, bounding cost and biasing toward established entries.
	PopularityFloor int `yaml:"popularity_floor" mapstructure:"popularity_floor"`
}

// DefaultConfig returns the stock resolver thresholds.
func DefaultConfig() Config {
	return Config{
		AcceptConfidence: 0.72,
		ProducerFloor:    0.5,
		WineFloor:        0.7,
		PopularityFloor:  2,
	}
}

// Store is the cache surface the resolver needs.
type Store interface {
	Get(ctx context.Context, key string) (*cache.Record, error)
	GetAlias(ctx context.Context, aliasKey string) (*cache.Alias, error)
	UpsertAlias(ctx context.Context, alias cache.Alias) error
	TouchAlias(ctx context.Context, aliasKey string) error
	ListByMinHits(ctx context.Context, minHits int) ([]cache.Record, error)
}

// Resolution is the outcome of a successful cascade lookup.
type Resolution struct {
	Record      *cache.Record
	MatchType   model.MatchType
	Confidence  float64
	SearchedKey string
	MatchedKey  string
}

// Exact reports whether the hit may be released without confirmation.
func (r *Resolution) Exact() bool { return r.MatchType == model.MatchExact }

// Resolver maps free-text identifications onto canonical cache records via
// a four-tier cascade: exact key, abbreviation expansion, learned alias,
// fuzzy match.
type Resolver struct {
	store    Store
	expander *Expander
	cfg      Config
	ttl      cache.TTLConfig
	now      func() time.Time
}

// New creates a resolver. The expander must be pre-built; the resolver
// never lazily initializes shared tables.
func New(store Store, expander *Expander, cfg Config, ttl cache.TTLConfig) *Resolver {
	return &Resolver{store: store, expander: expander, cfg: cfg, ttl: ttl, now: time.Now}
}

// WithNow fixes the clock for tests.
func (r *Resolver) WithNow(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve runs the cascade. Returns nil when no tier produces a usable
// record. Tier errors on the lookup path are returned; alias bookkeeping
// failures are best-effort and only logged.
func (r *Resolver) Resolve(ctx context.Context, id model.Identification) (*Resolution, error) {
	rawKey := BuildKey(id.Producer, id.WineName, id.Vintage)

	// Tier 1: exact.
	rec, err := r.usableRecord(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return &Resolution{
			Record:      rec,
			MatchType:   model.MatchExact,
			Confidence:  1.0,
			SearchedKey: rawKey,
			MatchedKey:  rawKey,
		}, nil
	}

	// Tier 2: abbreviation expansion.
	expProducer, changedP := r.expander.Expand(id.Producer, ScopeProducer)
	expWine, changedW := r.expander.Expand(id.WineName, ScopeWine)
	if changedP || changedW {
		expKey := BuildKey(expProducer, expWine, id.Vintage)
		if expKey != rawKey {
			rec, err = r.usableRecord(ctx, expKey)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				res := &Resolution{
					Record:      rec,
					MatchType:   model.MatchAbbreviation,
					Confidence:  0.95,
					SearchedKey: rawKey,
					MatchedKey:  expKey,
				}
				r.learnAlias(ctx, res)
				return res, nil
			}
		}
	}

	// Tier 3: learned alias table.
	alias, err := r.store.GetAlias(ctx, rawKey)
	if err != nil {
		return nil, err
	}
	if alias != nil {
		rec, err = r.usableRecord(ctx, alias.CanonicalKey)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			if err := r.store.TouchAlias(ctx, rawKey); err != nil {
				zap.L().Warn("resolver: touch alias failed",
					zap.String("alias", rawKey), zap.Error(err))
			}
			return &Resolution{
				Record:      rec,
				MatchType:   model.MatchAlias,
				Confidence:  alias.Confidence,
				SearchedKey: rawKey,
				MatchedKey:  alias.CanonicalKey,
			}, nil
		}
	}

	// Tier 4: fuzzy.
	return r.resolveFuzzy(ctx, id, rawKey)
}

// usableRecord fetches a record and applies the freshness rule: a record
// counts as a hit while at least one volatility group is inside its TTL.
func (r *Resolver) usableRecord(ctx context.Context, key string) (*cache.Record, error) {
	rec, err := r.store.Get(ctx, key)
	if err != nil || rec == nil {
		return nil, err
	}
	if !rec.Usable(r.now(), r.ttl) {
		zap.L().Debug("resolver: record fully expired", zap.String("key", key))
		return nil, nil
	}
	return rec, nil
}

func (r *Resolver) resolveFuzzy(ctx context.Context, id model.Identification, rawKey string) (*Resolution, error) {
	producerKey, wineKey, vintage := SplitKey(rawKey)

	candidates, err := r.store.ListByMinHits(ctx, r.cfg.PopularityFloor)
	if err != nil {
		return nil, err
	}

	var best *cache.Record
	var bestScore float64
	now := r.now()

	for i := range candidates {
		c := &candidates[i]
		// Vintage must match exactly, or both sides be non-vintage. Never
		// fuzz across years.
		if c.Vintage != vintage {
			continue
		}
		if !c.Usable(now, r.ttl) {
			continue
		}

		producerSim := Similarity(producerKey, c.ProducerKey)
		wineSim := Similarity(wineKey, c.WineKey)
		if producerSim < r.cfg.ProducerFloor || wineSim < r.cfg.WineFloor {
			continue
		}

		score := CombinedScore(producerSim, wineSim)
		if score >= r.cfg.AcceptConfidence && score > bestScore {
			best = c
			bestScore = score
		}
	}

	if best == nil {
		return nil, nil
	}

	zap.L().Debug("resolver: fuzzy match",
		zap.String("searched", rawKey),
		zap.String("matched", best.Key),
		zap.Float64("score", bestScore),
	)

	res := &Resolution{
		Record:      best,
		MatchType:   model.MatchFuzzy,
		Confidence:  bestScore,
		SearchedKey: rawKey,
		MatchedKey:  best.Key,
	}
	r.learnAlias(ctx, res)
	return res, nil
}

// learnAlias persists searched->matched so future identical inputs resolve
// at alias-tier cost. Best-effort and idempotent; the store guarantees the
// canonical side has a live record.
func (r *Resolver) learnAlias(ctx context.Context, res *Resolution) {
	if res.SearchedKey == res.MatchedKey || res.Confidence < r.cfg.AcceptConfidence {
		return
	}
	err := r.store.UpsertAlias(ctx, cache.Alias{
		AliasKey:     res.SearchedKey,
		CanonicalKey: res.MatchedKey,
		MatchType:    res.MatchType,
		Confidence:   res.Confidence,
	})
	if err != nil {
		zap.L().Warn("resolver: persist alias failed",
			zap.String("alias", res.SearchedKey),
			zap.String("canonical", res.MatchedKey),
			zap.Error(err),
		)
	}
}
