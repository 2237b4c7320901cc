// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package classify turns normalised digit images into probability
// distributions over the ten decimal digits.
package classify

import (
	"math"

	"rescribe.xyz/examid/digits"
)

// Probabilities holds the likelihood of a digit being each of 0-9
type Probabilities [10]float64

// Classifier scores a batch of digits, returning one set of
// Probabilities per digit in the same order.
type Classifier interface {
	Classify(batch []digits.Digit) ([]Probabilities, error)
}

// Func is an adapter allowing an ordinary function to be used as
// a Classifier.
type Func func(batch []digits.Digit) ([]Probabilities, error)

// Classify calls f(batch)
func (f Func) Classify(batch []digits.Digit) ([]Probabilities, error) {
	return f(batch)
}

// Best returns the most likely digit and its probability
func (p Probabilities) Best() (int, float64) {
	best := 0
	for i := range p {
		if p[i] > p[best] {
			best = i
		}
	}
	return best, p[best]
}

// Softmax converts raw scores into probabilities which sum to one
func Softmax(scores []float32) Probabilities {
	var p Probabilities
	max := math.Inf(-1)
	for i := 0; i < len(p) && i < len(scores); i++ {
		if float64(scores[i]) > max {
			max = float64(scores[i])
		}
	}
	var sum float64
	for i := 0; i < len(p) && i < len(scores); i++ {
		p[i] = math.Exp(float64(scores[i]) - max)
		sum += p[i]
	}
	if sum == 0 {
		return p
	}
	for i := range p {
		p[i] /= sum
	}
	return p
}
