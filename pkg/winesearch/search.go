// Package winesearch wraps search-grounded knowledge retrieval for wine
// metadata behind an opaque interface. Callers must treat Search as a
// blocking call that can take tens of seconds and fail at any time.
package winesearch

import (
	"context"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// Result is one retrieval outcome. Payload is raw, not yet sanitized or
// validated, and nil when the model produced nothing usable.
type Result struct {
	Payload    *model.EnrichmentPayload
	Confidence float64
	Grounded   bool
	Warnings   []string
}

// Searcher performs a single knowledge-retrieval call for a wine.
type Searcher interface {
	Search(ctx context.Context, producer, wine, vintage string) (*Result, error)
}
