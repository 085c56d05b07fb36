package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SYNOVA-LABS/ADA/internal/api/ws"
	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/storage"
	"github.com/SYNOVA-LABS/ADA/pkg/dto"
)

type stubStore struct {
	identities []models.Identity
	sightings  []models.Sighting
	pingErr    error
}

func (s *stubStore) LoadAll(context.Context) ([]models.Identity, error) {
	return s.identities, nil
}

func (s *stubStore) Append(_ context.Context, ident models.Identity) error {
	s.identities = append(s.identities, ident)
	return nil
}

func (s *stubStore) GetIdentity(_ context.Context, id uuid.UUID) (*models.Identity, error) {
	for i := range s.identities {
		if s.identities[i].ID == id {
			return &s.identities[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) ListIdentities(_ context.Context, limit, offset int) ([]models.Identity, int, error) {
	if offset >= len(s.identities) {
		return nil, len(s.identities), nil
	}
	end := offset + limit
	if end > len(s.identities) {
		end = len(s.identities)
	}
	return s.identities[offset:end], len(s.identities), nil
}

func (s *stubStore) AppendSighting(_ context.Context, sg models.Sighting) error {
	s.sightings = append(s.sightings, sg)
	return nil
}

func (s *stubStore) RecentSightings(_ context.Context, limit int) ([]models.Sighting, error) {
	if limit > len(s.sightings) {
		limit = len(s.sightings)
	}
	return s.sightings[:limit], nil
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }
func (s *stubStore) Close() error               { return nil }

type stubImages struct {
	objects map[string][]byte
}

func (s *stubImages) Save(_ context.Context, key string, data []byte) error {
	if s.objects == nil {
		s.objects = make(map[string][]byte)
	}
	s.objects[key] = data
	return nil
}

func (s *stubImages) Load(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func newTestRouter(t *testing.T, store *stubStore, images *stubImages, apiKey string) http.Handler {
	t.Helper()
	if images == nil {
		images = &stubImages{}
	}
	return NewRouter(RouterConfig{
		APIKey: apiKey,
		Store:  store,
		Images: images,
		Hub:    ws.NewHub(),
	})
}

func doGet(t *testing.T, h http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, nil, "")
	w := doGet(t, r, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReadyz(t *testing.T) {
	store := &stubStore{}
	r := newTestRouter(t, store, nil, "")

	w := doGet(t, r, "/readyz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	store.pingErr = errors.New("connection refused")
	w = doGet(t, r, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "not ready", body.Status)
	require.Contains(t, body.Checks["store"], "connection refused")
}

func TestAPIKeyGuard(t *testing.T) {
	r := newTestRouter(t, &stubStore{}, nil, "s3cret")

	w := doGet(t, r, "/v1/identities", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doGet(t, r, "/v1/identities", map[string]string{"X-API-Key": "wrong"})
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doGet(t, r, "/v1/identities", map[string]string{"X-API-Key": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListIdentities(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := &stubStore{identities: []models.Identity{
		{ID: uuid.New(), Label: models.NamedLabel("alice"), Access: models.AccessUser, CreatedAt: created},
		{ID: uuid.New(), Label: models.PlaceholderLabel(created), Access: models.AccessGuest, CreatedAt: created, ImageKey: "identities/x.jpg"},
	}}
	r := newTestRouter(t, store, nil, "")

	w := doGet(t, r, "/v1/identities", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body dto.IdentityListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 2, body.Total)
	require.Len(t, body.Identities, 2)
	require.Equal(t, "alice", body.Identities[0].Name)
	require.False(t, body.Identities[0].Placeholder)
	require.Empty(t, body.Identities[0].ImageURL)
	require.True(t, body.Identities[1].Placeholder)
	require.NotEmpty(t, body.Identities[1].ImageURL)
}

func TestGetIdentity(t *testing.T) {
	ident := models.Identity{ID: uuid.New(), Label: models.NamedLabel("bob"), Access: models.AccessAdmin}
	r := newTestRouter(t, &stubStore{identities: []models.Identity{ident}}, nil, "")

	w := doGet(t, r, "/v1/identities/"+ident.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body dto.IdentityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, ident.ID, body.ID)
	require.Equal(t, "admin", body.Access)

	w = doGet(t, r, "/v1/identities/"+uuid.NewString(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doGet(t, r, "/v1/identities/not-a-uuid", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentityImage(t *testing.T) {
	withImage := models.Identity{ID: uuid.New(), Label: models.NamedLabel("carol"), ImageKey: "identities/carol.jpg"}
	without := models.Identity{ID: uuid.New(), Label: models.NamedLabel("dave")}
	images := &stubImages{objects: map[string][]byte{"identities/carol.jpg": []byte("jpeg-bytes")}}
	r := newTestRouter(t, &stubStore{identities: []models.Identity{withImage, without}}, images, "")

	w := doGet(t, r, "/v1/identities/"+withImage.ID.String()+"/image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	require.Equal(t, "jpeg-bytes", w.Body.String())

	w = doGet(t, r, "/v1/identities/"+without.ID.String()+"/image", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSightings(t *testing.T) {
	store := &stubStore{sightings: []models.Sighting{
		{ID: uuid.New(), IdentityID: uuid.New(), Kind: models.SightingEnrolled, Timestamp: time.Now()},
		{ID: uuid.New(), IdentityID: uuid.New(), Kind: models.SightingRecognized, Distance: 0.4, Timestamp: time.Now()},
	}}
	r := newTestRouter(t, store, nil, "")

	w := doGet(t, r, "/v1/sightings?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body dto.SightingListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	require.Equal(t, "enrolled", body.Sightings[0].Kind)
}
