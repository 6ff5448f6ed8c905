package model

import (
	"fmt"

	"github.com/Brownie44l1/mnist-api/internal/digit"
)

type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
}

// MNISTMetadata describes a model taking a (1,1,28,28) image and returning
// (1,10) scores under the given tensor names.
func MNISTMetadata(inputName, outputName string) Metadata {
	return Metadata{
		InputName:   inputName,
		OutputName:  outputName,
		InputShape:  []int64{1, 1, digit.Size, digit.Size},
		OutputShape: []int64{1, digit.Classes},
	}
}

// CanvasRequest carries a drawn bitmap as rows of intensities, 255 being
// the white canvas.
type CanvasRequest struct {
	Pixels [][]int `json:"pixels"`
}

// Rows converts the request pixels to bytes, rejecting values outside [0,255].
func (r *CanvasRequest) Rows() ([][]uint8, error) {
	rows := make([][]uint8, len(r.Pixels))
	for y, row := range r.Pixels {
		rows[y] = make([]uint8, len(row))
		for x, v := range row {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: pixel (%d,%d) = %d out of range", digit.ErrInvalidInput, x, y, v)
			}
			rows[y][x] = uint8(v)
		}
	}
	return rows, nil
}

type PredictionResponse struct {
	Label         int                `json:"label"`
	Confidence    float32            `json:"confidence"`
	Probabilities digit.Distribution `json:"probabilities"`
	Ranking       []digit.Prediction `json:"ranking"`
}

type SaveResponse struct {
	Path       string  `json:"path"`
	Label      int     `json:"label"`
	Confidence float32 `json:"confidence"`
}
