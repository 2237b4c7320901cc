// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package version groups submissions into the versions of a paper
// they were set, by clustering the text printed on them.
package version

// Outlier is the version of a submission which could not be placed
// in any version. Real versions are numbered from 1.
const Outlier = 0

// Params controls clustering
type Params struct {
	Eps        float64 // neighbourhood radius
	MinSamples int     // points needed, including itself, for a core point
	MinDF      float64
	MaxDF      float64
}

// DefaultParams returns the usual clustering parameters
func DefaultParams() Params {
	return Params{Eps: 0.5, MinSamples: 2, MinDF: 0.1, MaxDF: 0.8}
}

// Cluster assigns a version to each text, returning the version of
// each and the number of versions found. If the texts share no
// usable vocabulary every one is an outlier and no versions are
// found.
func Cluster(texts []string, p Params) ([]int, int) {
	versions := make([]int, len(texts))
	if len(texts) == 0 {
		return versions, 0
	}

	vectors, vocab := NewVectoriser(p.MinDF, p.MaxDF).FitTransform(texts)
	if len(vocab) == 0 {
		return versions, 0
	}

	var usable []Vector
	var idx []int
	for i, v := range vectors {
		if isZero(v) {
			continue
		}
		usable = append(usable, v)
		idx = append(idx, i)
	}

	k := 0
	for i, l := range DBSCAN(usable, p.Eps, p.MinSamples) {
		if l == Noise {
			continue
		}
		versions[idx[i]] = l + 1
		if l+1 > k {
			k = l + 1
		}
	}
	return versions, k
}

// isZero reports whether a document had no terms in the vocabulary
func isZero(v Vector) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Representative is the submission whose page image stands for a
// version.
type Representative struct {
	Version    int
	Submission int
}

// State is the complete result of a clustering run
type State struct {
	Versions        []int // version of each submission, Outlier if none
	Count           int
	Representatives []Representative
	Outliers        []int
}

// Assign builds the State for a set of versions, choosing the
// first submission in each version as its representative.
func Assign(versions []int, count int) State {
	s := State{Versions: versions, Count: count}
	seen := make(map[int]bool)
	for sub, v := range versions {
		if v == Outlier {
			s.Outliers = append(s.Outliers, sub)
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		s.Representatives = append(s.Representatives, Representative{Version: v, Submission: sub})
	}
	return s
}
