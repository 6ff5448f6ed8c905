package digit

import (
	"math"
	"sort"
)

// Softmax converts raw scores into a probability distribution. The maximum
// score is subtracted before exponentiating so large logits cannot overflow.
func Softmax(s Scores) Distribution {
	maxScore := float64(s[0])
	for _, v := range s[1:] {
		maxScore = math.Max(maxScore, float64(v))
	}

	var exps [Classes]float64
	var sum float64
	for i, v := range s {
		exps[i] = math.Exp(float64(v) - maxScore)
		sum += exps[i]
	}

	var d Distribution
	for i, e := range exps {
		d[i] = float32(e / sum)
	}
	return d
}

// Rank returns every digit with its probability, most likely first. Equal
// probabilities keep ascending digit order. Probabilities are clamped to
// [0, 1] to absorb floating-point drift.
func Rank(d Distribution) []Prediction {
	ranked := make([]Prediction, Classes)
	for i, p := range d {
		ranked[i] = Prediction{Digit: i, Probability: clamp(p)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	return ranked
}

// Top returns the most probable digit; the lowest digit wins a tie.
func Top(d Distribution) Prediction {
	best := 0
	for i, p := range d {
		if p > d[best] {
			best = i
		}
	}
	return Prediction{Digit: best, Probability: d[best]}
}

func clamp(p float32) float32 {
	switch {
	case p < 0 || math.IsNaN(float64(p)):
		return 0
	case p > 1:
		return 1
	}
	return p
}
