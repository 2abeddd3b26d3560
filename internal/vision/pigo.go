package vision

import (
	_ "embed"
	"errors"
	"fmt"
	"image"
	"os"
	"sort"

	pigo "github.com/esimov/pigo/core"
)

// facefinder is the frontal face cascade distributed with pigo (MIT license,
// Copyright (c) 2018 Endre Simo).
//
//go:embed cascade/facefinder
var facefinder []byte

// PigoDetector finds frontal faces with a pigo cascade.
type PigoDetector struct {
	classifier  *pigo.Pigo
	minSize     int
	shiftFactor float64
	scaleFactor float64
	iouThresh   float64
	minQuality  float32
}

// DetectorOption configures a PigoDetector.
type DetectorOption func(*PigoDetector)

// WithMinFaceSize sets the smallest face side, in pixels, the cascade scans for.
func WithMinFaceSize(n int) DetectorOption {
	return func(d *PigoDetector) {
		if n > 0 {
			d.minSize = n
		}
	}
}

// WithMinQuality sets the detection score below which candidates are dropped.
func WithMinQuality(q float32) DetectorOption {
	return func(d *PigoDetector) {
		d.minQuality = q
	}
}

// LoadPigoDetector reads a cascade file from disk.
func LoadPigoDetector(path string, opts ...DetectorOption) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading cascade file: %w", err)
	}
	return NewPigoDetector(cascade, opts...)
}

// NewDefaultPigoDetector builds a detector from the bundled facefinder cascade.
func NewDefaultPigoDetector(opts ...DetectorOption) (*PigoDetector, error) {
	return NewPigoDetector(facefinder, opts...)
}

// ErrBadCascade is returned for cascade data that cannot be unpacked.
var ErrBadCascade = errors.New("invalid face cascade")

// NewPigoDetector unpacks a cascade and applies the options.
func NewPigoDetector(cascade []byte, opts ...DetectorOption) (*PigoDetector, error) {
	classifier, err := unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("unpacking cascade: %w", err)
	}

	d := &PigoDetector{
		classifier:  classifier,
		minSize:     40,
		shiftFactor: 0.1,
		scaleFactor: 1.1,
		iouThresh:   0.2,
		minQuality:  5.0,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// unpack guards pigo's decoder, which indexes into the data without bounds
// checks.
func unpack(cascade []byte) (p *pigo.Pigo, err error) {
	if len(cascade) < 16 {
		return nil, ErrBadCascade
	}
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("%w: %v", ErrBadCascade, r)
		}
	}()
	return pigo.NewPigo().Unpack(cascade)
}

// Detect returns the face rectangles found in gray.
func (d *PigoDetector) Detect(gray *image.Gray) []image.Rectangle {
	b := gray.Bounds()
	if b.Min != (image.Point{}) || gray.Stride != b.Dx() {
		gray = Grayscale(gray)
		b = gray.Bounds()
	}

	cols, rows := b.Dx(), b.Dy()
	params := pigo.CascadeParams{
		MinSize:     d.minSize,
		MaxSize:     min(rows, cols),
		ShiftFactor: d.shiftFactor,
		ScaleFactor: d.scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.iouThresh)

	var found []scoredRect
	for _, det := range dets {
		if det.Q < d.minQuality {
			continue
		}
		if r := detectionRect(det.Row, det.Col, det.Scale, b); !r.Empty() {
			found = append(found, scoredRect{rect: r, q: det.Q})
		}
	}
	return mergeOverlapping(found, d.iouThresh)
}

type scoredRect struct {
	rect image.Rectangle
	q    float32
}

// mergeOverlapping keeps the best-scoring rectangle of every group whose
// overlap exceeds thresh. pigo's clustering compares each candidate against a
// single seed, so one face can survive it as several nested boxes.
func mergeOverlapping(found []scoredRect, thresh float64) []image.Rectangle {
	sort.SliceStable(found, func(i, j int) bool { return found[i].q > found[j].q })

	var kept []image.Rectangle
	for _, c := range found {
		overlaps := false
		for _, k := range kept {
			if iou(c.rect, k) > thresh {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c.rect)
		}
	}
	return kept
}

// iou is the intersection-over-union of two rectangles.
func iou(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	in := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - in
	return in / union
}

// detectionRect converts a pigo centre/scale detection to a rectangle clipped
// to bounds.
func detectionRect(row, col, scale int, bounds image.Rectangle) image.Rectangle {
	half := scale / 2
	r := image.Rect(col-half, row-half, col-half+scale, row-half+scale)
	return r.Intersect(bounds)
}
