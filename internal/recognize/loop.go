package recognize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SYNOVA-LABS/ADA/internal/ingest"
	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/observability"
)

// FrameSource hands out frames in stream order. Next returns
// ingest.ErrSourceExhausted once the stream is finished.
type FrameSource interface {
	Next(ctx context.Context) (models.Frame, error)
}

// Encoder localizes faces in a frame and computes their descriptors.
type Encoder interface {
	Encode(ctx context.Context, frame models.Frame) ([]models.Face, error)
}

// Tracker assigns stable IDs to face boxes across consecutive frames. The
// IDs only annotate output; identity verdicts never depend on them.
type Tracker interface {
	Assign(boxes [][4]float32) []string
}

// Sink consumes loop output. Implementations must return quickly; anything
// slow belongs behind a channel or queue.
type Sink interface {
	OnFrame(result models.FrameResult)
	OnEnrollment(enr models.Enrollment)
}

// LoopConfig wires a Loop. Tracker may be nil. SampleEvery of K processes
// every Kth frame; skipped frames pass through to sinks unprocessed so a
// display consumer still renders smooth video.
type LoopConfig struct {
	Source      FrameSource
	Encoder     Encoder
	Matcher     *Matcher
	Enroller    *Enroller
	Tracker     Tracker
	Sinks       []Sink
	SampleEvery int
}

// Loop is the single sequential owner of recognition: one goroutine pulls
// frames, matches descriptors and mutates the identity set, so no result
// can observe a half-applied enrollment.
type Loop struct {
	cfg LoopConfig
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.SampleEvery < 1 {
		cfg.SampleEvery = 1
	}
	return &Loop{cfg: cfg}
}

// Run processes frames until the context is canceled or the source ends.
// Source errors are fatal; encoder errors degrade the frame to zero faces
// and the loop keeps going.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("recognition loop started", "sample_every", l.cfg.SampleEvery)

	var seen uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, err := l.cfg.Source.Next(ctx)
		if err != nil {
			if errors.Is(err, ingest.ErrSourceExhausted) {
				slog.Info("frame source exhausted, stopping recognition loop", "frames", seen)
				return err
			}
			return fmt.Errorf("acquire frame: %w", err)
		}
		seen++
		observability.FramesIngested.Inc()

		if frame.Index%uint64(l.cfg.SampleEvery) != 0 {
			l.emitFrame(models.FrameResult{Frame: frame})
			continue
		}

		result, enrollments := l.processFrame(ctx, frame)
		l.emitFrame(result)
		for _, enr := range enrollments {
			l.emitEnrollment(enr)
		}
	}
}

func (l *Loop) processFrame(ctx context.Context, frame models.Frame) (models.FrameResult, []models.Enrollment) {
	observability.FramesProcessed.Inc()

	faces, err := l.cfg.Encoder.Encode(ctx, frame)
	if err != nil {
		slog.Error("face encoding failed, treating frame as empty", "frame", frame.Index, "error", err)
		observability.EncodeFailures.Inc()
		return models.FrameResult{Frame: frame, Sampled: true}, nil
	}
	observability.FacesDetected.Add(float64(len(faces)))

	trackIDs := make([]string, len(faces))
	if l.cfg.Tracker != nil && len(faces) > 0 {
		boxes := make([][4]float32, len(faces))
		for i, f := range faces {
			boxes[i] = f.BBox
		}
		trackIDs = l.cfg.Tracker.Assign(boxes)
	}

	result := models.FrameResult{
		Frame:        frame,
		Sampled:      true,
		Observations: make([]models.Observation, 0, len(faces)),
	}
	var enrollments []models.Enrollment

	for i, face := range faces {
		obs := models.Observation{
			TrackID:    trackIDs[i],
			BBox:       face.BBox,
			Confidence: face.Confidence,
		}

		match := l.cfg.Matcher.Match(face.Descriptor)
		switch {
		case match.Known:
			id := match.ID
			obs.Known = true
			obs.IdentityID = &id
			obs.Label = match.Label
			obs.Access = match.Access
			obs.Distance = match.Distance
			observability.FacesMatched.Inc()

		default:
			enr, err := l.cfg.Enroller.Observe(ctx, face.Descriptor, face.Crop, trackIDs[i])
			if err != nil {
				slog.Error("enrollment failed, face stays unknown", "frame", frame.Index, "error", err)
				obs.Distance = match.Distance
			} else if enr != nil {
				id := enr.Identity.ID
				obs.Known = true
				obs.IdentityID = &id
				obs.Label = enr.Identity.Label
				obs.Access = enr.Identity.Access
				obs.Enrolled = true
				enrollments = append(enrollments, *enr)
				observability.EnrollmentsTotal.Inc()
				observability.KnownIdentities.Inc()
				slog.Info("enrolled new identity",
					"identity", enr.Identity.ID,
					"name", enr.Identity.Label.Name,
					"placeholder", enr.Identity.Label.Placeholder)
			} else {
				obs.Distance = match.Distance
			}
		}

		result.Observations = append(result.Observations, obs)
	}

	return result, enrollments
}

func (l *Loop) emitFrame(result models.FrameResult) {
	for _, s := range l.cfg.Sinks {
		s.OnFrame(result)
	}
}

func (l *Loop) emitEnrollment(enr models.Enrollment) {
	for _, s := range l.cfg.Sinks {
		s.OnEnrollment(enr)
	}
}
