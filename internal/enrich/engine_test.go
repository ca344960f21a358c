package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cellarbook/enrich-cli/internal/cache"
	"github.com/cellarbook/enrich-cli/internal/infer"
	"github.com/cellarbook/enrich-cli/internal/model"
	"github.com/cellarbook/enrich-cli/internal/resolver"
	"github.com/cellarbook/enrich-cli/pkg/winesearch"
)

var engineNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory cache.Store for engine tests.
type memStore struct {
	records map[string]*cache.Record
	aliases map[string]*cache.Alias
	sets    []string
	hits    []string
}

func newMemStore() *memStore {
	return &memStore{
		records: map[string]*cache.Record{},
		aliases: map[string]*cache.Alias{},
	}
}

func (m *memStore) Get(_ context.Context, key string) (*cache.Record, error) {
	return m.records[key], nil
}

func (m *memStore) Set(_ context.Context, key string, payload model.EnrichmentPayload) (*cache.Record, error) {
	m.sets = append(m.sets, key)
	hits := 0
	if existing, ok := m.records[key]; ok {
		hits = existing.HitCount
	}
	p, w, v := resolver.SplitKey(key)
	rec := &cache.Record{
		ID: key, Key: key, ProducerKey: p, WineKey: w, Vintage: v,
		Payload: payload, Confidence: payload.Confidence, HitCount: hits,
		FetchedAt: cache.GroupTimes{Static: engineNow, SemiStatic: engineNow, Dynamic: engineNow},
	}
	m.records[key] = rec
	return rec, nil
}

func (m *memStore) IncrementHit(_ context.Context, key string) error {
	m.hits = append(m.hits, key)
	if rec, ok := m.records[key]; ok {
		rec.HitCount++
	}
	return nil
}

func (m *memStore) ListByMinHits(_ context.Context, minHits int) ([]cache.Record, error) {
	var out []cache.Record
	for _, r := range m.records {
		if r.HitCount >= minHits {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) PurgeExpired(_ context.Context, _ cache.TTLConfig) (int, error) { return 0, nil }

func (m *memStore) GetAlias(_ context.Context, aliasKey string) (*cache.Alias, error) {
	return m.aliases[aliasKey], nil
}

func (m *memStore) UpsertAlias(_ context.Context, alias cache.Alias) error {
	if _, ok := m.records[alias.CanonicalKey]; !ok {
		return nil
	}
	m.aliases[alias.AliasKey] = &alias
	return nil
}

func (m *memStore) TouchAlias(_ context.Context, _ string) error { return nil }

func (m *memStore) ListAliases(_ context.Context, _ int) ([]cache.Alias, error) { return nil, nil }

func (m *memStore) Stats(_ context.Context) (*cache.Stats, error) { return &cache.Stats{}, nil }

func (m *memStore) Migrate(_ context.Context) error { return nil }

func (m *memStore) Close() error { return nil }

// fakeSearcher returns a canned result or error and records call counts.
type fakeSearcher struct {
	result *winesearch.Result
	err    error
	calls  int
}

func (f *fakeSearcher) Search(_ context.Context, _, _, _ string) (*winesearch.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func searchResult(confidence float64) *winesearch.Result {
	return &winesearch.Result{
		Payload: &model.EnrichmentPayload{
			Appellation:  "Margaux",
			Overview:     "A benchmark left-bank Bordeaux.",
			TastingNotes: "Cassis and violets.",
			Confidence:   confidence,
			Sources:      []string{"https://producer.example"},
		},
		Confidence: confidence,
		Grounded:   true,
	}
}

func newTestEngine(t *testing.T, store cache.Store, searcher winesearch.Searcher) *Engine {
	t.Helper()
	rules, err := resolver.DefaultAbbreviations()
	require.NoError(t, err)
	exp, err := resolver.NewExpander(rules)
	require.NoError(t, err)
	inferencer, err := infer.New()
	require.NoError(t, err)

	cfg := DefaultConfig()
	res := resolver.New(store, exp, resolver.DefaultConfig(), cfg.TTL)
	res.WithNow(func() time.Time { return engineNow })

	eng := New(store, res, searcher, inferencer, cfg)
	return eng.WithNow(func() time.Time { return engineNow })
}

func seedRecord(store *memStore, producer, wine, vintage string) *cache.Record {
	key := resolver.BuildKey(producer, wine, vintage)
	p, w, v := resolver.SplitKey(key)
	rec := &cache.Record{
		ID: key, Key: key, ProducerKey: p, WineKey: w, Vintage: v,
		Payload: model.EnrichmentPayload{
			Appellation: "Margaux",
			Overview:    "From cache.",
			Confidence:  0.9,
			Sources:     []string{"web_search"},
		},
		Confidence: 0.9,
		FetchedAt:  cache.GroupTimes{Static: engineNow.Add(-time.Hour), SemiStatic: engineNow.Add(-time.Hour), Dynamic: engineNow.Add(-time.Hour)},
	}
	store.records[key] = rec
	return rec
}

func TestEnrichEmptyIdentification(t *testing.T) {
	store := newMemStore()
	searcher := &fakeSearcher{}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{}, Options{})

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Warnings)
	assert.Zero(t, searcher.calls)
}

func TestEnrichExactCacheHit(t *testing.T) {
	store := newMemStore()
	rec := seedRecord(store, "Château Margaux", "Grand Vin", "2015")
	searcher := &fakeSearcher{}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Château Margaux", WineName: "Grand Vin", Vintage: "2015",
	}, Options{})

	require.True(t, result.Success)
	assert.False(t, result.PendingConfirmation)
	assert.Equal(t, model.SourceCache, result.Source)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Margaux", result.Data.Appellation)
	assert.Zero(t, searcher.calls, "cache hit must not reach the network")
	assert.Equal(t, []string{rec.Key}, store.hits)
}

func TestEnrichNearMatchNeedsConfirmation(t *testing.T) {
	store := newMemStore()
	rec := seedRecord(store, "Château Margaux", "Grand Vin", "2015")
	searcher := &fakeSearcher{}
	eng := newTestEngine(t, store, searcher)

	id := model.Identification{Producer: "Ch. Margaux", WineName: "Grand Vin", Vintage: "2015"}

	result := eng.Enrich(context.Background(), id, Options{})

	require.True(t, result.Success)
	assert.True(t, result.PendingConfirmation)
	assert.Nil(t, result.Data, "payload is withheld until confirmed")
	assert.Equal(t, model.MatchAbbreviation, result.MatchType)
	assert.Equal(t, "ch-margaux|grand-vin|2015", result.SearchedFor)
	assert.Equal(t, rec.Key, result.MatchedTo)
	assert.Zero(t, searcher.calls)

	// Replaying the identical identification with confirmation releases it.
	confirmed := eng.Enrich(context.Background(), id, Options{ConfirmMatch: true})
	require.True(t, confirmed.Success)
	assert.False(t, confirmed.PendingConfirmation)
	assert.Equal(t, model.SourceCache, confirmed.Source)
	require.NotNil(t, confirmed.Data)
	assert.Zero(t, searcher.calls)
}

func TestEnrichMissFetchesAndStores(t *testing.T) {
	store := newMemStore()
	searcher := &fakeSearcher{result: searchResult(0.85)}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Château Margaux", WineName: "Grand Vin", Vintage: "2015",
	}, Options{})

	require.True(t, result.Success)
	assert.Equal(t, model.SourceWebSearch, result.Source)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Margaux", result.Data.Appellation)
	assert.Equal(t, 1, searcher.calls)
	assert.Equal(t, []string{"chateau-margaux|grand-vin|2015"}, store.sets)
	assert.Equal(t, model.SourceWebSearch, result.FieldSources["appellation"])
}

func TestEnrichLowConfidenceServedNotStored(t *testing.T) {
	store := newMemStore()
	searcher := &fakeSearcher{result: searchResult(0.4)}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Obscure Estate", WineName: "Field Blend", Vintage: "2019",
	}, Options{})

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Margaux", result.Data.Appellation)
	assert.Empty(t, store.sets, "below the store minimum nothing is cached")
}

func TestEnrichWeakFreshMergesInference(t *testing.T) {
	store := newMemStore()
	weak := &winesearch.Result{
		Payload: &model.EnrichmentPayload{
			Overview:   "Thin result.",
			Confidence: 0.3,
		},
		Confidence: 0.3,
	}
	searcher := &fakeSearcher{result: weak}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Castello di Ama", WineName: "San Lorenzo", Region: "Chianti Classico",
	}, Options{})

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	// Fresh fields win; inference fills what the weak result lacks.
	assert.Equal(t, "Thin result.", result.Data.Overview)
	assert.Equal(t, "Chianti Classico", result.Data.Appellation)
	assert.Equal(t, model.SourceInference, result.FieldSources["appellation"])
	assert.Equal(t, model.SourceWebSearch, result.FieldSources["overview"])
}

func TestEnrichSearchFailureFallsBackToInference(t *testing.T) {
	store := newMemStore()
	searcher := &fakeSearcher{err: errors.New("invalid request")}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Louis Jadot", WineName: "Chablis",
	}, Options{})

	require.True(t, result.Success)
	assert.Equal(t, model.SourceInference, result.Source)
	require.NotNil(t, result.Data)
	assert.Equal(t, "Chablis", result.Data.Appellation)
	assert.NotEmpty(t, result.Warnings)
}

func TestEnrichTotalFailure(t *testing.T) {
	store := newMemStore()
	searcher := &fakeSearcher{err: errors.New("invalid request")}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Mystery Estate", WineName: "Unknown Bottling",
	}, Options{})

	assert.False(t, result.Success)
	assert.Nil(t, result.Data)
	assert.NotEmpty(t, result.Warnings)
}

func TestEnrichForceRefreshSkipsResolution(t *testing.T) {
	store := newMemStore()
	seedRecord(store, "Château Margaux", "Grand Vin", "2015")
	searcher := &fakeSearcher{result: searchResult(0.85)}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Château Margaux", WineName: "Grand Vin", Vintage: "2015",
	}, Options{ForceRefresh: true})

	require.True(t, result.Success)
	assert.Equal(t, 1, searcher.calls, "force refresh must hit the network")
	assert.Equal(t, model.SourceWebSearch, result.Source)
	assert.Empty(t, store.hits)
}

func TestEnrichStaleRecordStillMerges(t *testing.T) {
	store := newMemStore()
	rec := seedRecord(store, "Château Margaux", "Grand Vin", "2015")
	old := engineNow.Add(-400 * 24 * time.Hour)
	rec.FetchedAt = cache.GroupTimes{Static: old, SemiStatic: old, Dynamic: old}

	// Fresh result lacks tasting notes; the expired record still has them.
	rec.Payload.TastingNotes = "Cedar and tobacco with age."
	fresh := &winesearch.Result{
		Payload: &model.EnrichmentPayload{
			Appellation: "Margaux",
			Confidence:  0.85,
		},
		Confidence: 0.85,
	}
	searcher := &fakeSearcher{result: fresh}
	eng := newTestEngine(t, store, searcher)

	result := eng.Enrich(context.Background(), model.Identification{
		Producer: "Château Margaux", WineName: "Grand Vin", Vintage: "2015",
	}, Options{})

	require.True(t, result.Success)
	assert.Equal(t, 1, searcher.calls, "fully expired record is a miss")
	require.NotNil(t, result.Data)
	assert.Equal(t, "Cedar and tobacco with age.", result.Data.TastingNotes)
	assert.Equal(t, model.SourceCache, result.FieldSources["tasting_notes"])
}
