package vision

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIoU(t *testing.T) {
	a := [4]float32{0, 0, 10, 10}

	require.InDelta(t, 1.0, iou(a, a), 1e-6)
	require.InDelta(t, 0.0, iou(a, [4]float32{20, 20, 30, 30}), 1e-6)

	// 50 px^2 intersection over 150 px^2 union
	b := [4]float32{5, 0, 15, 10}
	require.InDelta(t, 1.0/3.0, iou(a, b), 1e-6)
}

func TestIoUDegenerate(t *testing.T) {
	zero := [4]float32{5, 5, 5, 5}
	require.Equal(t, float32(0), iou(zero, zero))
}

func TestClampF(t *testing.T) {
	require.Equal(t, float32(0), clampF(-3, 0, 10))
	require.Equal(t, float32(10), clampF(42, 0, 10))
	require.Equal(t, float32(7), clampF(7, 0, 10))
}

func TestNMSSuppressesOverlap(t *testing.T) {
	dets := []Detection{
		{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.6},
		{BBox: [4]float32{1, 1, 11, 11}, Confidence: 0.9},
		{BBox: [4]float32{100, 100, 120, 120}, Confidence: 0.5},
	}

	kept := nms(dets, 0.4)
	require.Len(t, kept, 2)
	require.Equal(t, float32(0.9), kept[0].Confidence)
	require.Equal(t, float32(0.5), kept[1].Confidence)
}

func TestNMSKeepsDistinct(t *testing.T) {
	dets := []Detection{
		{BBox: [4]float32{0, 0, 10, 10}, Confidence: 0.8},
		{BBox: [4]float32{50, 50, 60, 60}, Confidence: 0.7},
	}
	require.Len(t, nms(dets, 0.4), 2)
}

func TestNMSEmpty(t *testing.T) {
	require.Empty(t, nms(nil, 0.4))
}
