package cache

import (
	"time"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// VolatilityGroup names one of the three field groups sharing a refresh
// cadence. Static fields (grapes, appellation, ABV) essentially never
// change, semi-static fields (drink window, production method, style,
// narrative) drift over years, dynamic fields (critic scores) move with
// every review cycle.
type VolatilityGroup string

const (
	GroupStatic     VolatilityGroup = "static"
	GroupSemiStatic VolatilityGroup = "semi_static"
	GroupDynamic    VolatilityGroup = "dynamic"
)

// TTLConfig holds the per-group maximum age in days.
type TTLConfig struct {
	StaticDays     int `yaml:"static_days" mapstructure:"static_days"`
	SemiStaticDays int `yaml:"semi_static_days" mapstructure:"semi_static_days"`
	DynamicDays    int `yaml:"dynamic_days" mapstructure:"dynamic_days"`
}

// DefaultTTL returns the stock freshness policy.
func DefaultTTL() TTLConfig {
	return TTLConfig{StaticDays: 365, SemiStaticDays: 180, DynamicDays: 30}
}

func (c TTLConfig) days(g VolatilityGroup) int {
	switch g {
	case GroupStatic:
		return c.StaticDays
	case GroupSemiStatic:
		return c.SemiStaticDays
	default:
		return c.DynamicDays
	}
}

// GroupTimes carries the independent fetch timestamp per volatility group.
// All three are reset together on every successful overwrite.
type GroupTimes struct {
	Static     time.Time `json:"static"`
	SemiStatic time.Time `json:"semi_static"`
	Dynamic    time.Time `json:"dynamic"`
}

func (g GroupTimes) at(group VolatilityGroup) time.Time {
	switch group {
	case GroupStatic:
		return g.Static
	case GroupSemiStatic:
		return g.SemiStatic
	default:
		return g.Dynamic
	}
}

// Record is one cached enrichment keyed by canonical lookup key.
type Record struct {
	ID           string
	Key          string
	ProducerKey  string
	WineKey      string
	Vintage      string
	Payload      model.EnrichmentPayload
	Confidence   float64
	HitCount     int
	FetchedAt    GroupTimes
	LastAccessed time.Time
	CreatedAt    time.Time
}

// StaleGroups returns the volatility groups whose fetch timestamp has
// exceeded its configured max age.
func (r *Record) StaleGroups(now time.Time, ttl TTLConfig) []VolatilityGroup {
	var stale []VolatilityGroup
	for _, g := range []VolatilityGroup{GroupStatic, GroupSemiStatic, GroupDynamic} {
		maxAge := time.Duration(ttl.days(g)) * 24 * time.Hour
		if now.Sub(r.FetchedAt.at(g)) > maxAge {
			stale = append(stale, g)
		}
	}
	return stale
}

// Usable reports whether the record still counts as a cache hit. A record
// is a full miss only once every group has expired; while any group is
// fresh the whole stored payload is served. Selective per-group refresh is
// a possible future upgrade, see DESIGN.md.
func (r *Record) Usable(now time.Time, ttl TTLConfig) bool {
	return len(r.StaleGroups(now, ttl)) < 3
}

// Alias is a learned mapping from a variant lookup key to the canonical
// key that actually holds the cache record. Created lazily when a
// non-exact resolution succeeds, hit-counted thereafter, never expired.
type Alias struct {
	ID           string
	AliasKey     string
	CanonicalKey string
	MatchType    model.MatchType
	Confidence   float64
	HitCount     int
	LastUsedAt   time.Time
}
