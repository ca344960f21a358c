package cache

import (
	"context"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// Stats summarizes cache contents for the stats command.
type Stats struct {
	Records   int `json:"records"`
	Aliases   int `json:"aliases"`
	TotalHits int `json:"total_hits"`
}

// Store is the persistence interface for enrichment records and learned
// aliases. Writes are last-writer-wins upserts; concurrent enrichments of
// the same wine converge to the same overwritten record.
type Store interface {
	// Records
	Get(ctx context.Context, key string) (*Record, error)
	Set(ctx context.Context, key string, payload model.EnrichmentPayload) (*Record, error)
	IncrementHit(ctx context.Context, key string) error
	ListByMinHits(ctx context.Context, minHits int) ([]Record, error)
	PurgeExpired(ctx context.Context, ttl TTLConfig) (int, error)

	// Aliases. UpsertAlias is a no-op when the canonical key has no live
	// record, which keeps the alias table free of orphans.
	GetAlias(ctx context.Context, aliasKey string) (*Alias, error)
	UpsertAlias(ctx context.Context, alias Alias) error
	TouchAlias(ctx context.Context, aliasKey string) error
	ListAliases(ctx context.Context, limit int) ([]Alias, error)

	// Lifecycle
	Stats(ctx context.Context) (*Stats, error)
	Migrate(ctx context.Context) error
	Close() error
}
