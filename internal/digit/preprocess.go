package digit

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Preprocess turns a canvas bitmap into the model input tensor.
//
// The bitmap is flattened onto white and converted to grayscale, resized to
// Size×Size with resample (Bicubic when nil), inverted so the dark stroke on a
// white canvas becomes a light stroke on black, and scaled to [0, 1].
func Preprocess(img image.Image, resample Resampler) (*Tensor, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: zero area bitmap (%dx%d)", ErrInvalidInput, b.Dx(), b.Dy())
	}
	if resample == nil {
		resample = Bicubic
	}

	small := resample(Grayscale(img), Size)

	var t Tensor
	for y := 0; y < Size; y++ {
		row := small.Pix[y*small.Stride : y*small.Stride+Size]
		for x, v := range row {
			t[y*Size+x] = float32(255-v) / 255.0
		}
	}
	return &t, nil
}

// Grayscale composites img over an opaque white background and returns its
// luma as a zero-origin *image.Gray. Transparent regions read as canvas.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), image.White, image.Point{}, xdraw.Src)
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Over)
	return dst
}

// FromGrid builds a bitmap from rows of intensities. Every row must have the
// same, non-zero length.
func FromGrid(rows [][]uint8) (*image.Gray, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, fmt.Errorf("%w: empty pixel grid", ErrInvalidInput)
	}
	w := len(rows[0])
	img := image.NewGray(image.Rect(0, 0, w, len(rows)))
	for y, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("%w: row %d has %d pixels, want %d", ErrInvalidInput, y, len(row), w)
		}
		copy(img.Pix[y*img.Stride:], row)
	}
	return img, nil
}
