package recognize

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

type fakeStore struct {
	mu          sync.Mutex
	identities  []models.Identity
	sightings   []models.Sighting
	appendErr   error
	sightingErr error
}

func (f *fakeStore) LoadAll(context.Context) ([]models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Identity(nil), f.identities...), nil
}

func (f *fakeStore) Append(_ context.Context, ident models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.identities = append(f.identities, ident)
	return nil
}

func (f *fakeStore) GetIdentity(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.identities {
		if f.identities[i].ID == id {
			ident := f.identities[i]
			return &ident, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListIdentities(context.Context, int, int) ([]models.Identity, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Identity(nil), f.identities...), len(f.identities), nil
}

func (f *fakeStore) AppendSighting(_ context.Context, sg models.Sighting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sightingErr != nil {
		return f.sightingErr
	}
	f.sightings = append(f.sightings, sg)
	return nil
}

func (f *fakeStore) RecentSightings(context.Context, int) ([]models.Sighting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Sighting(nil), f.sightings...), nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.identities)
}

type fakeImages struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: make(map[string][]byte)}
}

func (f *fakeImages) Enqueue(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[key] = append([]byte(nil), data...)
}

func mustUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
