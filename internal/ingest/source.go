package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"log/slog"
	"sync"
	"time"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

// ErrSourceExhausted means the stream ended: a file ran out of frames, a
// device disappeared, or ffmpeg exited cleanly. The recognition loop treats
// it as the signal to shut down.
var ErrSourceExhausted = errors.New("ingest: source exhausted")

const frameBuffer = 4

// FFmpegSource adapts the push-style ffmpeg extraction into the pull-style
// feed the recognition loop wants. A small buffer sits between the two;
// when the loop falls behind a live stream the oldest buffered frame is
// dropped so recognition always works on recent video.
type FFmpegSource struct {
	frames chan models.Frame

	mu        sync.Mutex
	err       error
	nextIndex uint64
	drops     uint64
}

// StartFFmpegSource launches ffmpeg and begins buffering frames. Canceling
// ctx terminates the process and, once the buffer drains, Next reports the
// stream as exhausted.
func StartFFmpegSource(ctx context.Context, url string, fps, width int) *FFmpegSource {
	s := &FFmpegSource{
		frames: make(chan models.Frame, frameBuffer),
	}
	go s.pump(ctx, url, fps, width)
	return s
}

func (s *FFmpegSource) pump(ctx context.Context, url string, fps, width int) {
	extractor := &FFmpegExtractor{}
	err := extractor.StartExtraction(ctx, url, fps, width, func(frameData []byte) error {
		s.push(frameData)
		return nil
	})

	s.mu.Lock()
	switch {
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.err = ErrSourceExhausted
	default:
		s.err = fmt.Errorf("ffmpeg source: %w", err)
	}
	s.mu.Unlock()
	close(s.frames)
}

func (s *FFmpegSource) push(data []byte) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Warn("discarding undecodable frame", "error", err)
		return
	}

	s.mu.Lock()
	frame := models.Frame{
		Index:     s.nextIndex,
		Timestamp: time.Now().UTC(),
		Width:     cfg.Width,
		Height:    cfg.Height,
		JPEG:      data,
	}
	s.nextIndex++
	s.mu.Unlock()

	select {
	case s.frames <- frame:
		return
	default:
	}

	// buffer full: sacrifice the oldest frame for the new one
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}

	s.mu.Lock()
	s.drops++
	drops := s.drops
	s.mu.Unlock()
	if drops%100 == 1 {
		slog.Warn("recognition is behind the stream, dropping frames", "dropped", drops)
	}
}

// Next blocks for the next frame in stream order.
func (s *FFmpegSource) Next(ctx context.Context) (models.Frame, error) {
	select {
	case <-ctx.Done():
		return models.Frame{}, ctx.Err()
	case frame, ok := <-s.frames:
		if !ok {
			return models.Frame{}, s.terminalErr()
		}
		return frame, nil
	}
}

func (s *FFmpegSource) terminalErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		return ErrSourceExhausted
	}
	return s.err
}
