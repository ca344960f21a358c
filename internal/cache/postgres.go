package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS wine_cache (
	id              TEXT NOT NULL,
	key             TEXT PRIMARY KEY,
	producer_key    TEXT NOT NULL,
	wine_key        TEXT NOT NULL,
	vintage         TEXT NOT NULL,
	payload         JSONB NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
	hit_count       INTEGER NOT NULL DEFAULT 0,
	fetched_static  TIMESTAMPTZ NOT NULL,
	fetched_semi    TIMESTAMPTZ NOT NULL,
	fetched_dynamic TIMESTAMPTZ NOT NULL,
	last_accessed   TIMESTAMPTZ NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS wine_alias (
	id            TEXT NOT NULL,
	alias_key     TEXT PRIMARY KEY,
	canonical_key TEXT NOT NULL REFERENCES wine_cache(key),
	match_type    TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL DEFAULT 0,
	hit_count     INTEGER NOT NULL DEFAULT 0,
	last_used     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wine_cache_hits ON wine_cache(hit_count);
CREATE INDEX IF NOT EXISTS idx_wine_cache_vintage ON wine_cache(vintage);
CREATE INDEX IF NOT EXISTS idx_wine_alias_canonical ON wine_alias(canonical_key);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgRecordColumns = `id, key, producer_key, wine_key, vintage, payload, confidence,
	hit_count, fetched_static, fetched_semi, fetched_dynamic, last_accessed, created_at`

func (s *PostgresStore) Get(ctx context.Context, key string) (*Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM wine_cache WHERE key = $1`, key)

	rec, err := scanPGRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (s *PostgresStore) Set(ctx context.Context, key string, payload model.EnrichmentPayload) (*Record, error) {
	producerKey, wineKey, vintage := splitKey(key)
	if producerKey == "" && wineKey == "" {
		return nil, eris.Errorf("postgres: malformed lookup key %q", key)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal payload")
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO wine_cache (id, key, producer_key, wine_key, vintage, payload, confidence,
			hit_count, fetched_static, fetched_semi, fetched_dynamic, last_accessed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $8, $8, $8)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			confidence = EXCLUDED.confidence,
			fetched_static = EXCLUDED.fetched_static,
			fetched_semi = EXCLUDED.fetched_semi,
			fetched_dynamic = EXCLUDED.fetched_dynamic,
			last_accessed = EXCLUDED.last_accessed`,
		uuid.New().String(), key, producerKey, wineKey, vintage, payloadJSON,
		payload.Confidence, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert record %s", key)
	}

	return s.Get(ctx, key)
}

func (s *PostgresStore) IncrementHit(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE wine_cache SET hit_count = hit_count + 1, last_accessed = now() WHERE key = $1`,
		key,
	)
	return eris.Wrapf(err, "postgres: increment hit %s", key)
}

func (s *PostgresStore) ListByMinHits(ctx context.Context, minHits int) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgRecordColumns+` FROM wine_cache WHERE hit_count >= $1 ORDER BY hit_count DESC`,
		minHits,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list by min hits")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanPGRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list iterate")
}

func (s *PostgresStore) PurgeExpired(ctx context.Context, ttl TTLConfig) (int, error) {
	now := time.Now().UTC()
	staticCut := now.AddDate(0, 0, -ttl.StaticDays)
	semiCut := now.AddDate(0, 0, -ttl.SemiStaticDays)
	dynamicCut := now.AddDate(0, 0, -ttl.DynamicDays)

	_, err := s.pool.Exec(ctx, `
		DELETE FROM wine_alias WHERE canonical_key IN (
			SELECT key FROM wine_cache
			WHERE fetched_static < $1 AND fetched_semi < $2 AND fetched_dynamic < $3
		)`, staticCut, semiCut, dynamicCut)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge aliases")
	}

	tag, err := s.pool.Exec(ctx, `
		DELETE FROM wine_cache
		WHERE fetched_static < $1 AND fetched_semi < $2 AND fetched_dynamic < $3`,
		staticCut, semiCut, dynamicCut)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: purge records")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) GetAlias(ctx context.Context, aliasKey string) (*Alias, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, alias_key, canonical_key, match_type, confidence, hit_count, last_used
		FROM wine_alias WHERE alias_key = $1`, aliasKey)

	var a Alias
	err := row.Scan(&a.ID, &a.AliasKey, &a.CanonicalKey, &a.MatchType, &a.Confidence,
		&a.HitCount, &a.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get alias")
	}
	return &a, nil
}

func (s *PostgresStore) UpsertAlias(ctx context.Context, alias Alias) error {
	if alias.AliasKey == alias.CanonicalKey {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO wine_alias (id, alias_key, canonical_key, match_type, confidence, hit_count, last_used)
		SELECT $1, $2, key, $3, $4, 0, now() FROM wine_cache WHERE key = $5
		ON CONFLICT (alias_key) DO UPDATE SET
			canonical_key = EXCLUDED.canonical_key,
			match_type = EXCLUDED.match_type,
			confidence = EXCLUDED.confidence,
			last_used = EXCLUDED.last_used`,
		uuid.New().String(), alias.AliasKey, alias.MatchType, alias.Confidence,
		alias.CanonicalKey,
	)
	return eris.Wrapf(err, "postgres: upsert alias %s", alias.AliasKey)
}

func (s *PostgresStore) TouchAlias(ctx context.Context, aliasKey string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE wine_alias SET hit_count = hit_count + 1, last_used = now() WHERE alias_key = $1`,
		aliasKey,
	)
	return eris.Wrapf(err, "postgres: touch alias %s", aliasKey)
}

func (s *PostgresStore) ListAliases(ctx context.Context, limit int) ([]Alias, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, alias_key, canonical_key, match_type, confidence, hit_count, last_used
		FROM wine_alias ORDER BY hit_count DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list aliases")
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.AliasKey, &a.CanonicalKey, &a.MatchType,
			&a.Confidence, &a.HitCount, &a.LastUsedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan alias")
		}
		aliases = append(aliases, a)
	}
	return aliases, eris.Wrap(rows.Err(), "postgres: list aliases iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM wine_cache`)
	if err := row.Scan(&st.Records, &st.TotalHits); err != nil {
		return nil, eris.Wrap(err, "postgres: stats records")
	}
	row = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM wine_alias`)
	if err := row.Scan(&st.Aliases); err != nil {
		return nil, eris.Wrap(err, "postgres: stats aliases")
	}
	return &st, nil
}

func scanPGRecord(row pgx.Row) (*Record, error) {
	var r Record
	var payloadJSON []byte

	err := row.Scan(&r.ID, &r.Key, &r.ProducerKey, &r.WineKey, &r.Vintage, &payloadJSON,
		&r.Confidence, &r.HitCount, &r.FetchedAt.Static, &r.FetchedAt.SemiStatic,
		&r.FetchedAt.Dynamic, &r.LastAccessed, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan record")
	}

	if err := json.Unmarshal(payloadJSON, &r.Payload); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal payload")
	}
	return &r, nil
}
