// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package classify

import (
	"math"
	"testing"

	"rescribe.xyz/examid/digits"
)

func TestSoftmax(t *testing.T) {
	p := Softmax([]float32{1, 2, 3, 0, 0, 0, 0, 0, 0, 10})
	var sum float64
	for _, v := range p {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("Probabilities sum to %f, expected 1", sum)
	}
	best, prob := p.Best()
	if best != 9 || prob < 0.99 {
		t.Fatalf("Best = %d (%f), expected 9 with high probability", best, prob)
	}

	flat := Softmax(make([]float32, 10))
	for i, v := range flat {
		if math.Abs(v-0.1) > 1e-9 {
			t.Fatalf("Flat softmax %d = %f, expected 0.1", i, v)
		}
	}
}

func TestBestTie(t *testing.T) {
	var p Probabilities
	p[3], p[7] = 0.5, 0.5
	if best, _ := p.Best(); best != 3 {
		t.Fatalf("Best of a tie = %d, expected the lower digit 3", best)
	}
}

func TestDecode(t *testing.T) {
	scores := make([]float32, 20)
	scores[4] = 0.9
	scores[10+8] = 0.8

	raw := &Onnx{}
	probs, err := raw.decode(scores, 2)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if probs[0][4] != float64(float32(0.9)) || probs[1][8] != float64(float32(0.8)) {
		t.Fatalf("Raw scores not passed through: %v", probs)
	}

	soft := &Onnx{softmax: true}
	probs, err = soft.decode(scores, 2)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if best, _ := probs[1].Best(); best != 8 {
		t.Fatalf("Softmaxed best digit %d, expected 8", best)
	}

	_, err = raw.decode(scores, 3)
	if err == nil {
		t.Fatalf("Expected an error for a mismatched output size")
	}
}

func TestFunc(t *testing.T) {
	var c Classifier = Func(func(batch []digits.Digit) ([]Probabilities, error) {
		return make([]Probabilities, len(batch)), nil
	})
	probs, err := c.Classify(make([]digits.Digit, 3))
	if err != nil || len(probs) != 3 {
		t.Fatalf("Func classifier returned %d results, err %v", len(probs), err)
	}
}

func TestNewOnnxBadOptions(t *testing.T) {
	_, err := NewOnnx(OnnxOptions{})
	if err == nil {
		t.Fatalf("Expected an error with no model set")
	}
	_, err = NewOnnx(OnnxOptions{Model: "digits.onnx", Layout: "chwn"})
	if err == nil {
		t.Fatalf("Expected an error for an unknown layout")
	}
}
