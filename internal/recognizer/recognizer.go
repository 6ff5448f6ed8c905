// Package recognizer runs one drawn digit through preprocessing, the
// classifier and postprocessing.
package recognizer

import (
	"errors"
	"fmt"
	"image"

	"github.com/Brownie44l1/mnist-api/internal/digit"
	"github.com/Brownie44l1/mnist-api/internal/logger"
)

// Classifier scores a preprocessed digit. *model.Server implements it.
type Classifier interface {
	Infer(t *digit.Tensor) (digit.Scores, error)
}

type Result struct {
	Tensor        *digit.Tensor
	Scores        digit.Scores
	Probabilities digit.Distribution
	Ranking       []digit.Prediction
	Top           digit.Prediction
}

type Recognizer struct {
	classifier Classifier
	resample   digit.Resampler
	lggr       logger.Logger
}

func New(classifier Classifier, resample digit.Resampler, lggr logger.Logger) *Recognizer {
	if resample == nil {
		resample = digit.Bicubic
	}
	return &Recognizer{classifier: classifier, resample: resample, lggr: lggr}
}

// Preprocess exposes the tensor for previews without running the model.
func (r *Recognizer) Preprocess(img image.Image) (*digit.Tensor, error) {
	return digit.Preprocess(img, r.resample)
}

// Recognize preprocesses img and classifies it.
func (r *Recognizer) Recognize(img image.Image) (*Result, error) {
	t, err := r.Preprocess(img)
	if err != nil {
		return nil, err
	}
	return r.Classify(t)
}

// Classify runs the model on an already preprocessed tensor.
func (r *Recognizer) Classify(t *digit.Tensor) (*Result, error) {
	scores, err := r.classifier.Infer(t)
	if err == nil {
		err = scores.Validate()
	}
	if err != nil {
		if !errors.Is(err, digit.ErrInferenceUnavailable) {
			err = fmt.Errorf("%w: %w", digit.ErrInferenceUnavailable, err)
		}
		r.lggr.Debugw("Inference failed", "err", err)
		return nil, err
	}

	probs := digit.Softmax(scores)
	res := &Result{
		Tensor:        t,
		Scores:        scores,
		Probabilities: probs,
		Ranking:       digit.Rank(probs),
		Top:           digit.Top(probs),
	}
	r.lggr.Debugw("Recognized digit", "label", res.Top.Digit, "confidence", res.Top.Probability)
	return res, nil
}
