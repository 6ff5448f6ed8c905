// Package digit holds the pure image and probability transforms around the
// MNIST classifier: canvas bitmap to input tensor, and raw scores to a ranked
// probability distribution.
package digit

import (
	"fmt"
	"math"
)

const (
	// Size is the spatial edge of the model input.
	Size = 28
	// Classes is the number of digit classes the model scores.
	Classes = 10
)

// Tensor is a normalized model input of logical shape (1, 1, Size, Size),
// stored row-major. Values are in [0, 1] with the stroke high.
type Tensor [Size * Size]float32

// Shape returns the NCHW shape of t.
func (t *Tensor) Shape() []int64 {
	return []int64{1, 1, Size, Size}
}

// At returns the value at row y, column x.
func (t *Tensor) At(y, x int) float32 {
	return t[y*Size+x]
}

// Scores is a raw model output, one unbounded score per digit.
type Scores [Classes]float32

// Validate reports a NaN or infinite score, which softmax cannot turn into
// a distribution.
func (s Scores) Validate() error {
	for i, v := range s {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("%w: score %d is %v", ErrInferenceUnavailable, i, v)
		}
	}
	return nil
}

// Distribution is a probability per digit.
type Distribution [Classes]float32

// Prediction pairs a digit with its probability.
type Prediction struct {
	Digit       int     `json:"digit"`
	Probability float32 `json:"probability"`
}
