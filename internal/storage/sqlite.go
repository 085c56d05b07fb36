package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

// SQLiteStore is the default Store backend: a single local database file,
// no external services. Suits the one-camera assistant deployment.
type SQLiteStore struct {
	db  *sql.DB
	dim int
}

func NewSQLiteStore(path string, dim int) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create db dir: %v", ErrUnavailable, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", ErrUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %v", ErrUnavailable, err)
	}

	s := &SQLiteStore{db: db, dim: dim}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}
	return s, nil
}

// NewSQLiteStoreWithDB wires an existing connection; tests use it with an
// in-memory database.
func NewSQLiteStoreWithDB(db *sql.DB, dim int) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, dim: dim}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("%w: migrate: %v", ErrUnavailable, err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS identities (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			placeholder INTEGER NOT NULL DEFAULT 0,
			access      TEXT NOT NULL DEFAULT 'guest',
			descriptor  BLOB NOT NULL,
			image_key   TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS sightings (
			id          TEXT PRIMARY KEY,
			identity_id TEXT NOT NULL,
			kind        TEXT NOT NULL,
			distance    REAL NOT NULL,
			bbox        TEXT NOT NULL,
			track_id    TEXT NOT NULL DEFAULT '',
			timestamp   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_sightings_timestamp ON sightings(timestamp);
		CREATE INDEX IF NOT EXISTS idx_sightings_identity ON sightings(identity_id);
	`)
	return err
}

// DB exposes the underlying connection for tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// LoadAll reads every identity row. Rows that fail to decode are logged and
// skipped so one corrupt record cannot block startup.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, placeholder, access, descriptor, image_key, created_at FROM identities ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	skipped := 0
	for rows.Next() {
		var (
			rawID, name, access, imageKey string
			placeholder                   bool
			blob                          []byte
			createdAt                     time.Time
		)
		if err := rows.Scan(&rawID, &name, &placeholder, &access, &blob, &imageKey, &createdAt); err != nil {
			skipped++
			slog.Warn("skipping unreadable identity row", "error", err)
			continue
		}
		ident, err := decodeIdentityRow(rawID, name, placeholder, access, blob, imageKey, createdAt, s.dim)
		if err != nil {
			skipped++
			slog.Warn("skipping corrupt identity row", "id", rawID, "error", err)
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

func decodeIdentityRow(rawID, name string, placeholder bool, access string, blob []byte, imageKey string, createdAt time.Time, dim int) (models.Identity, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return models.Identity{}, fmt.Errorf("parse id: %w", err)
	}
	desc, err := decodeDescriptor(blob, dim)
	if err != nil {
		return models.Identity{}, err
	}
	lvl, err := models.ParseAccessLevel(access)
	if err != nil {
		// access does not affect matching; degrade instead of dropping the row
		slog.Warn("identity has unknown access level, treating as guest", "id", rawID, "access", access)
		lvl = models.AccessGuest
	}
	return models.Identity{
		ID:         id,
		Label:      models.Label{Name: name, Placeholder: placeholder},
		Access:     lvl,
		Descriptor: desc,
		ImageKey:   imageKey,
		CreatedAt:  createdAt,
	}, nil
}

// Append inserts one identity in a transaction. On failure nothing is
// written, which lets enrollment retry on the next sighting.
func (s *SQLiteStore) Append(ctx context.Context, ident models.Identity) error {
	if err := validateDim(ident.Descriptor, s.dim); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, name, placeholder, access, descriptor, image_key, created_at) VALUES (?,?,?,?,?,?,?)`,
		ident.ID.String(), ident.Label.Name, ident.Label.Placeholder, string(ident.Access),
		encodeDescriptor(ident.Descriptor), ident.ImageKey, ident.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append identity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	var (
		rawID, name, access, imageKey string
		placeholder                   bool
		blob                          []byte
		createdAt                     time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, placeholder, access, descriptor, image_key, created_at FROM identities WHERE id = ?`,
		id.String(),
	).Scan(&rawID, &name, &placeholder, &access, &blob, &imageKey, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	ident, err := decodeIdentityRow(rawID, name, placeholder, access, blob, imageKey, createdAt, s.dim)
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	return &ident, nil
}

func (s *SQLiteStore) ListIdentities(ctx context.Context, limit, offset int) ([]models.Identity, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM identities`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count identities: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, placeholder, access, descriptor, image_key, created_at
		 FROM identities ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []models.Identity
	for rows.Next() {
		var (
			rawID, name, access, imageKey string
			placeholder                   bool
			blob                          []byte
			createdAt                     time.Time
		)
		if err := rows.Scan(&rawID, &name, &placeholder, &access, &blob, &imageKey, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("scan identity: %w", err)
		}
		ident, err := decodeIdentityRow(rawID, name, placeholder, access, blob, imageKey, createdAt, s.dim)
		if err != nil {
			slog.Warn("skipping corrupt identity row", "id", rawID, "error", err)
			continue
		}
		out = append(out, ident)
	}
	return out, total, rows.Err()
}

func (s *SQLiteStore) AppendSighting(ctx context.Context, sg models.Sighting) error {
	bbox, err := json.Marshal(sg.BBox)
	if err != nil {
		return fmt.Errorf("append sighting: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sightings (id, identity_id, kind, distance, bbox, track_id, timestamp) VALUES (?,?,?,?,?,?,?)`,
		sg.ID.String(), sg.IdentityID.String(), string(sg.Kind), sg.Distance, string(bbox), sg.TrackID, sg.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("append sighting: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentSightings(ctx context.Context, limit int) ([]models.Sighting, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity_id, kind, distance, bbox, track_id, timestamp
		 FROM sightings ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sightings: %w", err)
	}
	defer rows.Close()

	var out []models.Sighting
	for rows.Next() {
		var (
			rawID, rawIdentity, kind, bbox, trackID string
			distance                                float64
			ts                                      time.Time
		)
		if err := rows.Scan(&rawID, &rawIdentity, &kind, &distance, &bbox, &trackID, &ts); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		sg := models.Sighting{
			Kind:      models.SightingKind(kind),
			Distance:  float32(distance),
			TrackID:   trackID,
			Timestamp: ts,
		}
		if sg.ID, err = uuid.Parse(rawID); err != nil {
			slog.Warn("skipping sighting with bad id", "id", rawID, "error", err)
			continue
		}
		if sg.IdentityID, err = uuid.Parse(rawIdentity); err != nil {
			slog.Warn("skipping sighting with bad identity id", "id", rawID, "error", err)
			continue
		}
		if err := json.Unmarshal([]byte(bbox), &sg.BBox); err != nil {
			slog.Warn("skipping sighting with bad bbox", "id", rawID, "error", err)
			continue
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}
