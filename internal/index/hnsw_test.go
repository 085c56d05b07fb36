package index

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

func TestHNSWNearest(t *testing.T) {
	a := ident(uuid.New(), "a", []float32{0, 0})
	b := ident(uuid.New(), "b", []float32{10, 0})

	h, err := NewHNSW(2, []models.Identity{a, b})
	require.NoError(t, err)
	require.Equal(t, 2, h.Len())

	entry, dist, ok := h.Nearest([]float32{9.5, 0})
	require.True(t, ok)
	require.Equal(t, b.ID, entry.ID)
	require.InDelta(t, 0.5, dist, 1e-6)
}

func TestHNSWInsertVisibleImmediately(t *testing.T) {
	h, err := NewHNSW(2, nil)
	require.NoError(t, err)

	_, _, ok := h.Nearest([]float32{1, 1})
	require.False(t, ok)

	a := ident(uuid.New(), "a", []float32{1, 1})
	require.NoError(t, h.Insert(a))

	entry, dist, ok := h.Nearest([]float32{1, 1})
	require.True(t, ok)
	require.Equal(t, a.ID, entry.ID)
	require.Zero(t, dist)
}

func TestHNSWRejectsWrongDimension(t *testing.T) {
	h, err := NewHNSW(2, nil)
	require.NoError(t, err)
	require.ErrorIs(t, h.Insert(ident(uuid.New(), "bad", []float32{1})), ErrDimensionMismatch)
}
