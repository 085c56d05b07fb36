package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/SYNOVA-LABS/ADA/internal/config"
	"github.com/SYNOVA-LABS/ADA/internal/models"
)

// PostgresStore is the networked Store backend. Descriptors live in pgvector
// columns so other services can query them directly.
type PostgresStore struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPostgresStore(cfg config.DatabaseConfig, dim int) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", ErrUnavailable, err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to postgres: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", ErrUnavailable, err)
	}

	s := &PostgresStore{pool: pool, dim: dim}
	if err := s.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS identities (
			id          UUID PRIMARY KEY,
			name        TEXT NOT NULL,
			placeholder BOOLEAN NOT NULL DEFAULT FALSE,
			access      TEXT NOT NULL DEFAULT 'guest',
			descriptor  vector(%d) NOT NULL,
			image_key   TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL
		)`, s.dim),
		`CREATE TABLE IF NOT EXISTS sightings (
			id          UUID PRIMARY KEY,
			identity_id UUID NOT NULL,
			kind        TEXT NOT NULL,
			distance    REAL NOT NULL,
			bbox        JSONB NOT NULL,
			track_id    TEXT NOT NULL DEFAULT '',
			timestamp   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_timestamp ON sightings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_identity ON sightings(identity_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, placeholder, access, descriptor, image_key, created_at FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	skipped := 0
	for rows.Next() {
		ident, err := scanIdentity(rows, s.dim)
		if err != nil {
			skipped++
			slog.Warn("skipping corrupt identity row", "error", err)
			continue
		}
		out = append(out, ident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	if skipped > 0 {
		slog.Warn("identity load finished with skipped rows", "loaded", len(out), "skipped", skipped)
	}
	return out, nil
}

func scanIdentity(row pgx.Row, dim int) (models.Identity, error) {
	var (
		ident  models.Identity
		access string
		vec    pgvector.Vector
	)
	if err := row.Scan(&ident.ID, &ident.Label.Name, &ident.Label.Placeholder, &access, &vec, &ident.ImageKey, &ident.CreatedAt); err != nil {
		return models.Identity{}, err
	}
	ident.Descriptor = vec.Slice()
	if err := validateDim(ident.Descriptor, dim); err != nil {
		return models.Identity{}, err
	}
	lvl, err := models.ParseAccessLevel(access)
	if err != nil {
		slog.Warn("identity has unknown access level, treating as guest", "id", ident.ID, "access", access)
		lvl = models.AccessGuest
	}
	ident.Access = lvl
	return ident, nil
}

func (s *PostgresStore) Append(ctx context.Context, ident models.Identity) error {
	if err := validateDim(ident.Descriptor, s.dim); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO identities (id, name, placeholder, access, descriptor, image_key, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ident.ID, ident.Label.Name, ident.Label.Placeholder, string(ident.Access),
		pgvector.NewVector(ident.Descriptor), ident.ImageKey, ident.CreatedAt)
	if err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, placeholder, access, descriptor, image_key, created_at FROM identities WHERE id = $1`, id)
	ident, err := scanIdentity(row, s.dim)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &ident, nil
}

func (s *PostgresStore) ListIdentities(ctx context.Context, limit, offset int) ([]models.Identity, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, placeholder, access, descriptor, image_key, created_at
		 FROM identities ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		ident, err := scanIdentity(rows, s.dim)
		if err != nil {
			slog.Warn("skipping corrupt identity row", "error", err)
			continue
		}
		out = append(out, ident)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) AppendSighting(ctx context.Context, sg models.Sighting) error {
	bbox, err := json.Marshal(sg.BBox)
	if err != nil {
		return fmt.Errorf("append sighting: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sightings (id, identity_id, kind, distance, bbox, track_id, timestamp) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sg.ID, sg.IdentityID, string(sg.Kind), sg.Distance, bbox, sg.TrackID, sg.Timestamp)
	if err != nil {
		return fmt.Errorf("append sighting: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentSightings(ctx context.Context, limit int) ([]models.Sighting, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, identity_id, kind, distance, bbox, track_id, timestamp
		 FROM sightings ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sightings: %w", err)
	}
	defer rows.Close()

	var out []models.Sighting
	for rows.Next() {
		var (
			sg   models.Sighting
			kind string
			bbox []byte
		)
		if err := rows.Scan(&sg.ID, &sg.IdentityID, &kind, &sg.Distance, &bbox, &sg.TrackID, &sg.Timestamp); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sg.Kind = models.SightingKind(kind)
		if err := json.Unmarshal(bbox, &sg.BBox); err != nil {
			slog.Warn("skipping sighting with bad bbox", "id", sg.ID, "error", err)
			continue
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}
