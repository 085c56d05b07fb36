package storage

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

var (
	// ErrUnavailable means the backing storage could not be opened or reached.
	ErrUnavailable = errors.New("storage: unavailable")
	// ErrNotFound is returned for lookups of identities that do not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrDimensionMismatch is returned when a descriptor does not have the
	// dimensionality the store was configured with.
	ErrDimensionMismatch = errors.New("storage: descriptor dimension mismatch")
)

// Store persists identities and sighting events. LoadAll skips records it
// cannot decode (logging each skip) rather than failing the whole load, so a
// single corrupt row never takes recognition down.
type Store interface {
	LoadAll(ctx context.Context) ([]models.Identity, error)
	Append(ctx context.Context, identity models.Identity) error
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	ListIdentities(ctx context.Context, limit, offset int) ([]models.Identity, int, error)
	AppendSighting(ctx context.Context, s models.Sighting) error
	RecentSightings(ctx context.Context, limit int) ([]models.Sighting, error)
	Ping(ctx context.Context) error
	Close() error
}

// ImageStore keeps the reference face crops. Save must never leave a
// half-written image behind a valid key.
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// encodeDescriptor packs a descriptor as little-endian IEEE 754 float32
// bytes, the BLOB layout used by the SQLite backend.
func encodeDescriptor(d []float32) []byte {
	buf := make([]byte, 4*len(d))
	for i, v := range d {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeDescriptor(buf []byte, dim int) ([]float32, error) {
	if len(buf) != 4*dim {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrDimensionMismatch, len(buf), 4*dim)
	}
	d := make([]float32, dim)
	for i := range d {
		d[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return d, nil
}

func validateDim(d []float32, dim int) error {
	if len(d) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d), dim)
	}
	return nil
}
