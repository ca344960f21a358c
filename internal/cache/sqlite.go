package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/cellarbook/enrich-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS wine_cache (
	id              TEXT NOT NULL,
	key             TEXT PRIMARY KEY,
	producer_key    TEXT NOT NULL,
	wine_key        TEXT NOT NULL,
	vintage         TEXT NOT NULL,
	payload         TEXT NOT NULL,
	confidence      REAL NOT NULL DEFAULT 0,
	hit_count       INTEGER NOT NULL DEFAULT 0,
	fetched_static  DATETIME NOT NULL,
	fetched_semi    DATETIME NOT NULL,
	fetched_dynamic DATETIME NOT NULL,
	last_accessed   DATETIME NOT NULL,
	created_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS wine_alias (
	id            TEXT NOT NULL,
	alias_key     TEXT PRIMARY KEY,
	canonical_key TEXT NOT NULL REFERENCES wine_cache(key),
	match_type    TEXT NOT NULL,
	confidence    REAL NOT NULL DEFAULT 0,
	hit_count     INTEGER NOT NULL DEFAULT 0,
	last_used     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_wine_cache_hits ON wine_cache(hit_count);
CREATE INDEX IF NOT EXISTS idx_wine_cache_vintage ON wine_cache(vintage);
CREATE INDEX IF NOT EXISTS idx_wine_alias_canonical ON wine_alias(canonical_key);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const recordColumns = `id, key, producer_key, wine_key, vintage, payload, confidence,
	hit_count, fetched_static, fetched_semi, fetched_dynamic, last_accessed, created_at`

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM wine_cache WHERE key = ?`, key)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// Set performs a wholesale upsert: every payload field is replaced and all
// three volatility timestamps reset to now. Hit counters survive the
// overwrite so the fuzzy tier's popularity floor keeps working.
func (s *SQLiteStore) Set(ctx context.Context, key string, payload model.EnrichmentPayload) (*Record, error) {
	producerKey, wineKey, vintage := splitKey(key)
	if producerKey == "" && wineKey == "" {
		return nil, eris.Errorf("sqlite: malformed lookup key %q", key)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal payload")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wine_cache (id, key, producer_key, wine_key, vintage, payload, confidence,
			hit_count, fetched_static, fetched_semi, fetched_dynamic, last_accessed)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			confidence = excluded.confidence,
			fetched_static = excluded.fetched_static,
			fetched_semi = excluded.fetched_semi,
			fetched_dynamic = excluded.fetched_dynamic,
			last_accessed = excluded.last_accessed`,
		id, key, producerKey, wineKey, vintage, string(payloadJSON), payload.Confidence,
		now, now, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert record %s", key)
	}

	return s.Get(ctx, key)
}

func (s *SQLiteStore) IncrementHit(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE wine_cache SET hit_count = hit_count + 1, last_accessed = ? WHERE key = ?`,
		time.Now().UTC(), key,
	)
	return eris.Wrapf(err, "sqlite: increment hit %s", key)
}

func (s *SQLiteStore) ListByMinHits(ctx context.Context, minHits int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM wine_cache WHERE hit_count >= ? ORDER BY hit_count DESC`,
		minHits,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list by min hits")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list iterate")
}

// PurgeExpired deletes records whose every volatility group has expired,
// along with their aliases.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, ttl TTLConfig) (int, error) {
	now := time.Now().UTC()
	staticCut := now.AddDate(0, 0, -ttl.StaticDays)
	semiCut := now.AddDate(0, 0, -ttl.SemiStaticDays)
	dynamicCut := now.AddDate(0, 0, -ttl.DynamicDays)

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM wine_alias WHERE canonical_key IN (
			SELECT key FROM wine_cache
			WHERE fetched_static < ? AND fetched_semi < ? AND fetched_dynamic < ?
		)`, staticCut, semiCut, dynamicCut)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge aliases")
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM wine_cache
		WHERE fetched_static < ? AND fetched_semi < ? AND fetched_dynamic < ?`,
		staticCut, semiCut, dynamicCut)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: purge records")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) GetAlias(ctx context.Context, aliasKey string) (*Alias, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, alias_key, canonical_key, match_type, confidence, hit_count, last_used
		FROM wine_alias WHERE alias_key = ?`, aliasKey)

	var a Alias
	err := row.Scan(&a.ID, &a.AliasKey, &a.CanonicalKey, &a.MatchType, &a.Confidence,
		&a.HitCount, &a.LastUsedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get alias")
	}
	return &a, nil
}

// UpsertAlias inserts or refreshes a learned alias. The INSERT is guarded
// by the existence of the canonical record, so an alias can never point at
// nothing.
func (s *SQLiteStore) UpsertAlias(ctx context.Context, alias Alias) error {
	if alias.AliasKey == alias.CanonicalKey {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wine_alias (id, alias_key, canonical_key, match_type, confidence, hit_count, last_used)
		SELECT ?, ?, key, ?, ?, 0, ? FROM wine_cache WHERE key = ?
		ON CONFLICT(alias_key) DO UPDATE SET
			canonical_key = excluded.canonical_key,
			match_type = excluded.match_type,
			confidence = excluded.confidence,
			last_used = excluded.last_used`,
		uuid.New().String(), alias.AliasKey, alias.MatchType, alias.Confidence,
		time.Now().UTC(), alias.CanonicalKey,
	)
	return eris.Wrapf(err, "sqlite: upsert alias %s", alias.AliasKey)
}

func (s *SQLiteStore) TouchAlias(ctx context.Context, aliasKey string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE wine_alias SET hit_count = hit_count + 1, last_used = ? WHERE alias_key = ?`,
		time.Now().UTC(), aliasKey,
	)
	return eris.Wrapf(err, "sqlite: touch alias %s", aliasKey)
}

func (s *SQLiteStore) ListAliases(ctx context.Context, limit int) ([]Alias, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, alias_key, canonical_key, match_type, confidence, hit_count, last_used
		FROM wine_alias ORDER BY hit_count DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list aliases")
	}
	defer rows.Close()

	var aliases []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.AliasKey, &a.CanonicalKey, &a.MatchType,
			&a.Confidence, &a.HitCount, &a.LastUsedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan alias")
		}
		aliases = append(aliases, a)
	}
	return aliases, eris.Wrap(rows.Err(), "sqlite: list aliases iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM wine_cache`)
	if err := row.Scan(&st.Records, &st.TotalHits); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats records")
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM wine_alias`)
	if err := row.Scan(&st.Aliases); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats aliases")
	}
	return &st, nil
}

// helpers

func splitKey(key string) (producer, wine, vintage string) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return "", "", ""
	}
	return parts[0], parts[1], parts[2]
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var r Record
	var payloadJSON string

	err := row.Scan(&r.ID, &r.Key, &r.ProducerKey, &r.WineKey, &r.Vintage, &payloadJSON,
		&r.Confidence, &r.HitCount, &r.FetchedAt.Static, &r.FetchedAt.SemiStatic,
		&r.FetchedAt.Dynamic, &r.LastAccessed, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}

	if err := json.Unmarshal([]byte(payloadJSON), &r.Payload); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal payload")
	}
	return &r, nil
}
