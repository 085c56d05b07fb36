// Package queue publishes recognition events to NATS JetStream so other
// services (door controllers, dashboards, alerting) can react without
// touching the engine's database.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

const (
	SightingsStreamName   = "SIGHTINGS"
	SightingsSubjectBase  = "sightings"
	EnrollmentsStreamName = "ENROLLMENTS"
	EnrollmentsSubject    = "enrollments"
)

type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewPublisher(natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// EnsureStreams creates JetStream streams if they don't exist.
// Retries up to 30 times (1s apart) to handle NATS startup delay.
func (p *Publisher) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        SightingsStreamName,
			Subjects:    []string{SightingsSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     1000000,
			Storage:     jetstream.FileStorage,
			Description: "Recognition and enrollment sightings",
		},
		{
			Name:        EnrollmentsStreamName,
			Subjects:    []string{EnrollmentsSubject},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      7 * 24 * time.Hour,
			MaxMsgs:     100000,
			Storage:     jetstream.FileStorage,
			Description: "New identity enrollments with full identity payload",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishSighting publishes one sighting on sightings.<kind>.
func (p *Publisher) PublishSighting(ctx context.Context, sg models.Sighting) error {
	payload, err := json.Marshal(sg)
	if err != nil {
		return fmt.Errorf("marshal sighting: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", SightingsSubjectBase, sg.Kind)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish sighting: %w", err)
	}
	return nil
}

// PublishEnrollment publishes a new identity, descriptor excluded, on
// the enrollments subject.
func (p *Publisher) PublishEnrollment(ctx context.Context, enr models.Enrollment) error {
	payload, err := json.Marshal(enr)
	if err != nil {
		return fmt.Errorf("marshal enrollment: %w", err)
	}

	if _, err := p.js.Publish(ctx, EnrollmentsSubject, payload); err != nil {
		return fmt.Errorf("publish enrollment: %w", err)
	}
	return nil
}

func (p *Publisher) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}
