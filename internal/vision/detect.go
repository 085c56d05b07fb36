package vision

import (
	"fmt"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// Detection is one face box found in a frame, in pixel coordinates of
// the original image.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2
	Confidence float32
}

// RetinaFace det_10g emits predictions at three feature-map strides,
// two anchors per cell.
var strides = []int{8, 16, 32}

const anchorsPerStride = 2

const detInputSize = 640

// Detector runs RetinaFace face detection using ONNX Runtime. Tensors
// are allocated once and reused across frames; Detect is not safe for
// concurrent use.
type Detector struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	scoreTensors []*ort.Tensor[float32]
	boxTensors   []*ort.Tensor[float32]
	threshold    float32
	inputW       int
	inputH       int
}

// NewDetector loads the RetinaFace ONNX model. Only the score and box
// outputs are bound; the landmark heads are left unrequested so the
// runtime prunes them from the graph.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewDetector(modelPath string, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	inputW, inputH := detInputSize, detInputSize

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, int64(inputH), int64(inputW)))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// det_10g output shapes carry no batch dimension. Per stride s the
	// row count is (640/s)^2 * anchorsPerStride:
	//   stride 8  -> 12800 rows
	//   stride 16 -> 3200 rows
	//   stride 32 -> 800 rows
	// Scores are [N,1], boxes are [N,4]. Output names come from the
	// exported graph.
	scoreNames := []string{"448", "471", "494"}
	boxNames := []string{"451", "474", "497"}

	var (
		outputNames   []string
		outputValues  []ort.Value
		scoreTensors  []*ort.Tensor[float32]
		boxTensors    []*ort.Tensor[float32]
		cleanupOnFail = func() {
			inputTensor.Destroy()
			for _, t := range scoreTensors {
				t.Destroy()
			}
			for _, t := range boxTensors {
				t.Destroy()
			}
		}
	)

	for i, stride := range strides {
		rows := int64(inputW / stride * inputH / stride * anchorsPerStride)

		st, err := ort.NewEmptyTensor[float32](ort.NewShape(rows, 1))
		if err != nil {
			cleanupOnFail()
			return nil, fmt.Errorf("create score tensor stride %d: %w", stride, err)
		}
		scoreTensors = append(scoreTensors, st)

		bt, err := ort.NewEmptyTensor[float32](ort.NewShape(rows, 4))
		if err != nil {
			cleanupOnFail()
			return nil, fmt.Errorf("create box tensor stride %d: %w", stride, err)
		}
		boxTensors = append(boxTensors, bt)

		outputNames = append(outputNames, scoreNames[i])
		outputValues = append(outputValues, st)
	}
	for i := range strides {
		outputNames = append(outputNames, boxNames[i])
		outputValues = append(outputValues, boxTensors[i])
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		outputNames,
		[]ort.Value{inputTensor},
		outputValues,
		opts,
	)
	if err != nil {
		cleanupOnFail()
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:      session,
		inputTensor:  inputTensor,
		scoreTensors: scoreTensors,
		boxTensors:   boxTensors,
		threshold:    threshold,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Detect runs face detection on a preprocessed image.
// imgData must be CHW [3, inputH, inputW], normalized. origW/origH are
// the original image dimensions used to scale boxes back.
func (d *Detector) Detect(imgData []float32, origW, origH int) ([]Detection, error) {
	copy(d.inputTensor.GetData(), imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	return nms(d.decodeBoxes(origW, origH), 0.4), nil
}

// decodeBoxes converts anchor-relative distances into pixel boxes. The
// model predicts, per anchor, the distance from the anchor center to
// each box edge in stride units.
func (d *Detector) decodeBoxes(origW, origH int) []Detection {
	var detections []Detection

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	for si, stride := range strides {
		scores := d.scoreTensors[si].GetData()
		boxes := d.boxTensors[si].GetData()

		fmW := d.inputW / stride
		fmH := d.inputH / stride
		st := float32(stride)

		idx := 0
		for cy := 0; cy < fmH; cy++ {
			for cx := 0; cx < fmW; cx++ {
				for a := 0; a < anchorsPerStride; a++ {
					score := scores[idx]
					if score >= d.threshold {
						anchorX := float32(cx) * st
						anchorY := float32(cy) * st

						x1 := (anchorX - boxes[idx*4+0]*st) * scaleW
						y1 := (anchorY - boxes[idx*4+1]*st) * scaleH
						x2 := (anchorX + boxes[idx*4+2]*st) * scaleW
						y2 := (anchorY + boxes[idx*4+3]*st) * scaleH

						detections = append(detections, Detection{
							BBox: [4]float32{
								clampF(x1, 0, float32(origW)),
								clampF(y1, 0, float32(origH)),
								clampF(x2, 0, float32(origW)),
								clampF(y2, 0, float32(origH)),
							},
							Confidence: score,
						})
					}
					idx++
				}
			}
		}
	}

	return detections
}

// InputSize returns the model's expected input dimensions.
func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	for _, t := range d.scoreTensors {
		if t != nil {
			t.Destroy()
		}
	}
	for _, t := range d.boxTensors {
		if t != nil {
			t.Destroy()
		}
	}
}

// nms drops boxes that overlap a higher-confidence box by more than
// iouThreshold.
func nms(detections []Detection, iouThreshold float32) []Detection {
	if len(detections) == 0 {
		return detections
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(detections); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if !keep[j] {
				continue
			}
			if iou(detections[i].BBox, detections[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []Detection
	for i, det := range detections {
		if keep[i] {
			result = append(result, det)
		}
	}
	return result
}
