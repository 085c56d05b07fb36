package recognize

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/storage"
)

const sightingWriteTimeout = 5 * time.Second

// EventPublisher forwards sightings and enrollments to an external bus.
type EventPublisher interface {
	PublishSighting(ctx context.Context, sg models.Sighting) error
	PublishEnrollment(ctx context.Context, enr models.Enrollment) error
}

// Recorder is the Sink that persists sightings and, when a publisher is
// configured, mirrors them onto the event bus. A per-identity debounce
// keeps a person standing in front of the camera from writing a row per
// frame; enrollments are always recorded. Write and publish failures are
// logged and dropped, sighting history is advisory.
type Recorder struct {
	store     storage.Store
	publisher EventPublisher // may be nil
	debounce  time.Duration

	now      func() time.Time
	lastSeen map[uuid.UUID]time.Time
}

func NewRecorder(store storage.Store, debounce time.Duration, publisher EventPublisher) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		debounce:  debounce,
		now:       time.Now,
		lastSeen:  make(map[uuid.UUID]time.Time),
	}
}

func (r *Recorder) OnFrame(result models.FrameResult) {
	for _, obs := range result.Observations {
		if !obs.Known || obs.Enrolled || obs.IdentityID == nil {
			continue
		}
		now := r.now()
		if last, ok := r.lastSeen[*obs.IdentityID]; ok && now.Sub(last) < r.debounce {
			continue
		}
		r.lastSeen[*obs.IdentityID] = now

		r.record(models.Sighting{
			ID:         uuid.New(),
			IdentityID: *obs.IdentityID,
			Kind:       models.SightingRecognized,
			Distance:   obs.Distance,
			BBox:       obs.BBox,
			TrackID:    obs.TrackID,
			Timestamp:  result.Frame.Timestamp,
		})
	}
}

func (r *Recorder) OnEnrollment(enr models.Enrollment) {
	r.lastSeen[enr.Identity.ID] = r.now()
	r.record(models.Sighting{
		ID:         uuid.New(),
		IdentityID: enr.Identity.ID,
		Kind:       models.SightingEnrolled,
		TrackID:    enr.TrackID,
		Timestamp:  enr.Timestamp,
	})

	if r.publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), sightingWriteTimeout)
		defer cancel()
		if err := r.publisher.PublishEnrollment(ctx, enr); err != nil {
			slog.Warn("enrollment publish failed", "identity", enr.Identity.ID, "error", err)
		}
	}
}

func (r *Recorder) record(sg models.Sighting) {
	ctx, cancel := context.WithTimeout(context.Background(), sightingWriteTimeout)
	defer cancel()

	if err := r.store.AppendSighting(ctx, sg); err != nil {
		slog.Warn("sighting write failed", "identity", sg.IdentityID, "kind", sg.Kind, "error", err)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishSighting(ctx, sg); err != nil {
			slog.Warn("sighting publish failed", "identity", sg.IdentityID, "kind", sg.Kind, "error", err)
		}
	}
}
