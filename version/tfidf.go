// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package version

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenise splits text into lower case words of two or more
// letters, digits or underscores.
func Tokenise(s string) []string {
	return tokenRe.FindAllString(strings.ToLower(s), -1)
}

// Vector is a document in term space
type Vector []float64

// Distance returns the euclidean distance between two vectors of
// the same length.
func Distance(a, b Vector) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Vectoriser weights the terms of a corpus by term frequency and
// inverse document frequency.
type Vectoriser struct {
	// MinDF and MaxDF bound, as proportions of the number of
	// documents, how many documents a term may appear in to be
	// kept in the vocabulary.
	MinDF, MaxDF float64
	StopWords    map[string]bool
}

// NewVectoriser returns a Vectoriser using English stop words
func NewVectoriser(minDF, maxDF float64) *Vectoriser {
	return &Vectoriser{MinDF: minDF, MaxDF: maxDF, StopWords: englishStopWords}
}

// FitTransform builds a vocabulary from docs and returns each
// document as an l2 normalised tf-idf vector over it, along with
// the vocabulary in sorted order. An empty vocabulary gives empty
// vectors.
func (v *Vectoriser) FitTransform(docs []string) ([]Vector, []string) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, d := range docs {
		counts[i] = make(map[string]int)
		for _, t := range Tokenise(d) {
			if v.StopWords[t] {
				continue
			}
			counts[i][t]++
		}
		for t := range counts[i] {
			df[t]++
		}
	}

	n := float64(len(docs))
	min, max := v.MinDF*n, v.MaxDF*n
	var vocab []string
	for t, c := range df {
		if float64(c) < min || float64(c) > max {
			continue
		}
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		index[t] = i
		idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}

	vectors := make([]Vector, len(docs))
	for i := range docs {
		vec := make(Vector, len(vocab))
		for t, c := range counts[i] {
			j, ok := index[t]
			if !ok {
				continue
			}
			vec[j] = float64(c) * idf[j]
		}
		normalise(vec)
		vectors[i] = vec
	}
	return vectors, vocab
}

func normalise(v Vector) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	l := math.Sqrt(sum)
	for i := range v {
		v[i] /= l
	}
}
