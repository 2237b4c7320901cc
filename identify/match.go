// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package identify matches the digits read from a submission's ID
// box against a class roster, and reconciles the matches found on
// different pages of the same submission.
package identify

import (
	"math"

	"rescribe.xyz/examid/classify"
	"rescribe.xyz/examid/roster"
)

// Cutoff returns the least joint probability which is accepted as
// an identification for an id of length digits. It is equivalent
// to an average per digit confidence of a little over 0.1, scaled
// so that short ids are not accepted too easily.
func Cutoff(length int) float64 {
	return 1000 * math.Pow(0.1, float64(length))
}

// JointProbability returns the product of the probability of each
// digit of id under the matching distribution in probs. If id and
// probs differ in length the probability is 0.
func JointProbability(id string, probs []classify.Probabilities) float64 {
	if len(id) != len(probs) {
		return 0
	}
	p := 1.0
	for i, c := range id {
		if c < '0' || c > '9' {
			return 0
		}
		p *= probs[i][c-'0']
	}
	return p
}

// Match is a roster entry with the joint probability of it being
// the id that was written.
type Match struct {
	Student roster.Student
	Prob    float64
}

// Best returns the roster entry with the greatest joint probability.
// Ties go to the earlier entry in the roster.
func Best(r *roster.Roster, probs []classify.Probabilities) (Match, bool) {
	var best Match
	found := false
	for _, s := range r.Students() {
		p := JointProbability(s.ID, probs)
		if !found || p > best.Prob {
			best = Match{Student: s, Prob: p}
			found = true
		}
	}
	return best, found
}
