package vision

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"path/filepath"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/SYNOVA-LABS/ADA/internal/config"
	"github.com/SYNOVA-LABS/ADA/internal/models"
	"github.com/SYNOVA-LABS/ADA/internal/observability"
)

const (
	detModelFile = "det_10g.onnx"
	embModelFile = "w600k_r50.onnx"

	cropQuality = 85
)

// Encoder turns a raw frame into located faces with descriptors:
// detect boxes, crop each with padding, embed the crop. It owns the
// ONNX sessions and must only be driven from one goroutine.
type Encoder struct {
	detector *Detector
	embedder *Embedder
}

// NewEncoder loads the detection and embedding models from cfg.ModelsDir.
// opts may be nil; pass pre-built session options to pin threads or an
// execution provider.
func NewEncoder(cfg config.VisionConfig, opts *ort.SessionOptions) (*Encoder, error) {
	detPath := filepath.Join(cfg.ModelsDir, detModelFile)
	embPath := filepath.Join(cfg.ModelsDir, embModelFile)

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), opts)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	slog.Info("face encoder ready")

	return &Encoder{detector: det, embedder: emb}, nil
}

// Dim returns the descriptor length the embedding model produces.
func (e *Encoder) Dim() int {
	return e.embedder.Dim()
}

// Encode detects faces in the frame and computes a descriptor for each.
// A face whose crop or embedding fails is skipped with a warning rather
// than failing the whole frame.
func (e *Encoder) Encode(ctx context.Context, frame models.Frame) ([]models.Face, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := jpeg.Decode(bytes.NewReader(frame.JPEG))
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", frame.Index, err)
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	start := time.Now()
	detInput := preprocessForDetection(img, e.detector.inputW, e.detector.inputH)
	observability.InferenceDuration.WithLabelValues("preprocess").Observe(time.Since(start).Seconds())

	start = time.Now()
	detections, err := e.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())

	faces := make([]models.Face, 0, len(detections))
	for _, det := range detections {
		crop := cropFace(img, det.BBox)
		if crop == nil {
			slog.Warn("degenerate face box, skipping", "frame", frame.Index, "bbox", det.BBox)
			continue
		}

		start = time.Now()
		embInput := preprocessForEmbedding(crop, e.embedder.inputW, e.embedder.inputH)
		descriptor, err := e.embedder.Extract(embInput)
		if err != nil {
			slog.Warn("embedding failed, skipping face", "frame", frame.Index, "error", err)
			continue
		}
		observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())

		faces = append(faces, models.Face{
			BBox:       det.BBox,
			Confidence: det.Confidence,
			Descriptor: descriptor,
			Crop:       encodeJPEG(crop, cropQuality),
		})
	}

	return faces, nil
}

// Close releases the ONNX sessions.
func (e *Encoder) Close() {
	if e.detector != nil {
		e.detector.Close()
	}
	if e.embedder != nil {
		e.embedder.Close()
	}
}
