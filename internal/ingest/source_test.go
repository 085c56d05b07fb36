package ingest

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SYNOVA-LABS/ADA/internal/models"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestFFmpegSourcePushAssignsIndexAndDims(t *testing.T) {
	s := &FFmpegSource{frames: make(chan models.Frame, 4)}
	s.push(encodeTestJPEG(t, 6, 4))
	s.push(encodeTestJPEG(t, 6, 4))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := s.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), first.Index)
	require.Equal(t, 6, first.Width)
	require.Equal(t, 4, first.Height)
	require.NotEmpty(t, first.JPEG)

	second, err := s.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), second.Index)
}

func TestFFmpegSourceDropsOldestWhenBehind(t *testing.T) {
	s := &FFmpegSource{frames: make(chan models.Frame, 2)}
	for i := 0; i < 3; i++ {
		s.push(encodeTestJPEG(t, 2, 2))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, err := s.Next(ctx)
	require.NoError(t, err)
	second, err := s.Next(ctx)
	require.NoError(t, err)

	// frame 0 was sacrificed; the two newest survive in order
	require.Equal(t, uint64(1), first.Index)
	require.Equal(t, uint64(2), second.Index)
}

func TestFFmpegSourceDiscardsUndecodableFrames(t *testing.T) {
	s := &FFmpegSource{frames: make(chan models.Frame, 2)}
	s.push([]byte{0xFF, 0xD8, 0x00, 0xFF, 0xD9}) // marker-framed but not a decodable JPEG
	require.Empty(t, s.frames)
}

func TestFFmpegSourceNextAfterExhaustion(t *testing.T) {
	s := &FFmpegSource{frames: make(chan models.Frame, 2)}
	s.push(encodeTestJPEG(t, 2, 2))
	s.mu.Lock()
	s.err = ErrSourceExhausted
	s.mu.Unlock()
	close(s.frames)

	ctx := context.Background()

	// buffered frame drains first, then the terminal error surfaces
	_, err := s.Next(ctx)
	require.NoError(t, err)

	_, err = s.Next(ctx)
	require.ErrorIs(t, err, ErrSourceExhausted)
}

func TestFFmpegSourceNextHonorsContext(t *testing.T) {
	s := &FFmpegSource{frames: make(chan models.Frame, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
