package recognize

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/index"
	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/storage"
)

// ImageSink receives enrollment reference images for persistence off the
// hot path.
type ImageSink interface {
	Enqueue(key string, data []byte)
}

// Enroller turns faces that stay unmatched past the cooldown into stored
// identities. One global cooldown timestamp gates all enrollment; it only
// advances after the identity record is durably appended, so a failed write
// leaves the face eligible for retry on its next appearance.
type Enroller struct {
	store    storage.Store
	images   ImageSink
	finder   index.NearestFinder
	prompt   MetadataPrompt
	cooldown time.Duration

	now            func() time.Time
	lastEnrollment time.Time
}

func NewEnroller(store storage.Store, images ImageSink, finder index.NearestFinder, prompt MetadataPrompt, cooldown time.Duration) *Enroller {
	if prompt == nil {
		prompt = NopPrompt{}
	}
	return &Enroller{
		store:    store,
		images:   images,
		finder:   finder,
		prompt:   prompt,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// Observe handles one unmatched descriptor. It returns the enrollment when
// the face was promoted to an identity, nil while the cooldown is active,
// and an error when enrollment was due but persisting the record failed.
func (e *Enroller) Observe(ctx context.Context, descriptor []float32, crop []byte, trackID string) (*models.Enrollment, error) {
	now := e.now()
	if now.Sub(e.lastEnrollment) < e.cooldown {
		return nil, nil
	}

	meta, ok := e.prompt.Collect(ctx, crop)
	if !ok {
		meta = Metadata{Label: models.PlaceholderLabel(now), Access: models.AccessGuest}
	}

	id := uuid.New()
	ident := models.Identity{
		ID:         id,
		Label:      meta.Label,
		Access:     meta.Access,
		Descriptor: descriptor,
		ImageKey:   fmt.Sprintf("identities/%s.jpg", id),
		CreatedAt:  now,
	}
	if len(crop) == 0 {
		ident.ImageKey = ""
	}

	if err := e.store.Append(ctx, ident); err != nil {
		return nil, fmt.Errorf("enroll %s: %w", ident.Label.Name, err)
	}
	if err := e.finder.Insert(ident); err != nil {
		return nil, fmt.Errorf("enroll %s: index insert: %w", ident.Label.Name, err)
	}

	if e.images != nil && len(crop) > 0 {
		e.images.Enqueue(ident.ImageKey, crop)
	}

	e.lastEnrollment = now
	return &models.Enrollment{
		Identity:  ident,
		TrackID:   trackID,
		Timestamp: now,
	}, nil
}
