package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeImageStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{saved: make(map[string][]byte)}
}

func (f *fakeImageStore) Save(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeImageStore) Load(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.saved[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func TestAsyncImageWriterFlushesOnClose(t *testing.T) {
	fake := newFakeImageStore()
	w := NewAsyncImageWriter(fake, 8)

	w.Enqueue("a.jpg", []byte("a"))
	w.Enqueue("b.jpg", []byte("b"))
	w.Close()

	require.Equal(t, []byte("a"), fake.saved["a.jpg"])
	require.Equal(t, []byte("b"), fake.saved["b.jpg"])
}

func TestAsyncImageWriterToleratesFailures(t *testing.T) {
	fake := newFakeImageStore()
	fake.err = errors.New("disk full")
	w := NewAsyncImageWriter(fake, 8)

	w.Enqueue("a.jpg", []byte("a"))
	w.Close()

	require.Empty(t, fake.saved)
}

func TestAsyncImageWriterDropsAfterClose(t *testing.T) {
	fake := newFakeImageStore()
	w := NewAsyncImageWriter(fake, 8)
	w.Close()

	w.Enqueue("late.jpg", []byte("x"))
	w.Close()

	require.Empty(t, fake.saved)
}
