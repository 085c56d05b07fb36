package ingest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func jpegBytes(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestReadJPEGFramesSplitsStream(t *testing.T) {
	frame1 := jpegBytes(0x01, 0x02, 0x03)
	frame2 := jpegBytes(0x04, 0x05)

	var stream []byte
	stream = append(stream, 0x00, 0x11) // leading noise before the first marker
	stream = append(stream, frame1...)
	stream = append(stream, 0xAB) // inter-frame noise
	stream = append(stream, frame2...)

	var got [][]byte
	err := readJPEGFrames(context.Background(), bytes.NewReader(stream), func(frameData []byte) error {
		got = append(got, append([]byte(nil), frameData...))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, frame1, got[0])
	require.Equal(t, frame2, got[1])
}

func TestReadJPEGFramesKeepsEscapedMarkers(t *testing.T) {
	// 0xFF followed by a byte other than 0xD9 is frame payload, not an end marker
	frame := jpegBytes(0xFF, 0x00, 0x10, 0xFF, 0x01)

	var got [][]byte
	err := readJPEGFrames(context.Background(), bytes.NewReader(frame), func(frameData []byte) error {
		got = append(got, append([]byte(nil), frameData...))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, frame, got[0])
}

func TestReadJPEGFramesEndMidFrame(t *testing.T) {
	full := jpegBytes(0x01)
	truncated := []byte{0xFF, 0xD8, 0x02, 0x03} // no end marker before EOF

	var got [][]byte
	err := readJPEGFrames(context.Background(), bytes.NewReader(append(full, truncated...)), func(frameData []byte) error {
		got = append(got, append([]byte(nil), frameData...))
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, full, got[0])
}
