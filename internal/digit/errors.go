package digit

import "errors"

var (
	// ErrInvalidInput is returned for a nil, empty or malformed bitmap.
	ErrInvalidInput = errors.New("invalid input image")

	// ErrInferenceUnavailable is returned when the classifier cannot produce scores.
	ErrInferenceUnavailable = errors.New("inference unavailable")
)
