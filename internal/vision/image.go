// Package vision holds the frame-level image operations used while sampling:
// mirroring, grayscale conversion, face crops for the classifier, overlays and
// encoders.
package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
)

// FaceSize is the side length of the square face input fed to classifiers.
const FaceSize = 48

// Mirror returns a horizontally flipped copy of img, anchored at the origin.
func Mirror(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)

	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			li, ri := l*4, r*4
			for c := 0; c < 4; c++ {
				row[li+c], row[ri+c] = row[ri+c], row[li+c]
			}
		}
	}
	return out
}

// Grayscale converts img to a single-channel image anchored at the origin.
// The result's stride always equals its width.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// FaceInput crops r out of gray, resizes it to FaceSize x FaceSize and scales
// intensities to [0,1]. The rectangle is clipped to the image first; it
// returns false when nothing is left.
func FaceInput(gray *image.Gray, r image.Rectangle) ([]float32, bool) {
	r = r.Intersect(gray.Bounds())
	if r.Empty() {
		return nil, false
	}

	face := image.NewGray(image.Rect(0, 0, FaceSize, FaceSize))
	draw.ApproxBiLinear.Scale(face, face.Bounds(), gray, r, draw.Src, nil)

	out := make([]float32, FaceSize*FaceSize)
	for i, v := range face.Pix {
		out[i] = float32(v) / 255
	}
	return out, true
}

// EncodeFacePNG renders a normalized face input back to an 8-bit grayscale PNG.
func EncodeFacePNG(input []float32) ([]byte, error) {
	if len(input) != FaceSize*FaceSize {
		return nil, fmt.Errorf("face input has %d values, want %d", len(input), FaceSize*FaceSize)
	}

	img := image.NewGray(image.Rect(0, 0, FaceSize, FaceSize))
	for i, v := range input {
		img.Pix[i] = clampByte(v * 255)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding face png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeJPEG encodes img for the live preview.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func clampByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
