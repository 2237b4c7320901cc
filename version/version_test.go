// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package version

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenise(t *testing.T) {
	got := Tokenise("Question 1(a): Find the área of a_b, x.")
	want := []string{"question", "find", "the", "área", "of", "a_b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenise = %v, expected %v", got, want)
	}
}

func TestFitTransform(t *testing.T) {
	docs := []string{
		"integral derivative the",
		"integral matrix the",
		"eigenvalue matrix the",
		"",
	}
	v := NewVectoriser(0.1, 0.8)
	vectors, vocab := v.FitTransform(docs)

	// "the" is a stop word; nothing else appears in more than 80%
	want := []string{"derivative", "eigenvalue", "integral", "matrix"}
	if !reflect.DeepEqual(vocab, want) {
		t.Fatalf("vocab = %v, expected %v", vocab, want)
	}
	for i, vec := range vectors[:3] {
		var sum float64
		for _, x := range vec {
			sum += x * x
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Vector %d not normalised: squared length %f", i, sum)
		}
	}
	if !isZero(vectors[3]) {
		t.Errorf("Empty document should have a zero vector: %v", vectors[3])
	}

	// with n=4, idf(integral) = ln(5/3)+1 and idf(derivative) = ln(5/2)+1
	ratio := vectors[0][0] / vectors[0][2]
	wantRatio := (math.Log(5.0/2) + 1) / (math.Log(5.0/3) + 1)
	if math.Abs(ratio-wantRatio) > 1e-9 {
		t.Errorf("idf ratio %f, expected %f", ratio, wantRatio)
	}
}

func TestFitTransformDFLimits(t *testing.T) {
	docs := []string{"common rare", "common", "common", "common", "common"}
	_, vocab := NewVectoriser(0.3, 0.8).FitTransform(docs)
	if len(vocab) != 0 {
		t.Fatalf("Expected empty vocabulary, got %v", vocab)
	}
	_, vocab = NewVectoriser(0.1, 1.0).FitTransform(docs)
	if !reflect.DeepEqual(vocab, []string{"common", "rare"}) {
		t.Fatalf("Expected both terms, got %v", vocab)
	}
}

func TestDBSCAN(t *testing.T) {
	points := []Vector{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{5, 5}, {5.2, 5},
		{10, 0},
	}
	got := DBSCAN(points, 0.5, 2)
	want := []int{0, 0, 0, 1, 1, Noise}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DBSCAN = %v, expected %v", got, want)
	}

	got = DBSCAN(points, 0.5, 3)
	want = []int{0, 0, 0, Noise, Noise, Noise}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DBSCAN with minSamples 3 = %v, expected %v", got, want)
	}
}

func TestDBSCANBorder(t *testing.T) {
	// the end points are border points, reachable but not core
	points := []Vector{{0}, {0.4}, {0.8}}
	got := DBSCAN(points, 0.5, 3)
	want := []int{0, 0, 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DBSCAN = %v, expected %v", got, want)
	}
}

func TestCluster(t *testing.T) {
	cases := []struct {
		name  string
		texts []string
		want  []int
		count int
	}{
		{
			"duplicates",
			[]string{
				"Calculus midterm version blue integrate polynomial",
				"Calculus midterm version blue integrate polynomial",
				"Organic chemistry laboratory report benzene",
			},
			[]int{1, 1, Outlier},
			1,
		},
		{
			"twoversions",
			[]string{
				"alpha bravo charlie",
				"delta echo foxtrot",
				"alpha bravo charlie",
				"delta echo foxtrot",
			},
			[]int{1, 2, 1, 2},
			2,
		},
		{
			"novocabulary",
			[]string{"the and of", "a an the"},
			[]int{Outlier, Outlier},
			0,
		},
		{
			"blankpages",
			[]string{"", "", "alpha bravo", "alpha bravo"},
			[]int{Outlier, Outlier, 1, 1},
			1,
		},
		{"empty", nil, []int{}, 0},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, k := Cluster(c.texts, DefaultParams())
			if !reflect.DeepEqual(got, c.want) || k != c.count {
				t.Fatalf("Cluster = %v, %d; expected %v, %d", got, k, c.want, c.count)
			}
		})
	}
}

func TestAssign(t *testing.T) {
	s := Assign([]int{2, 1, Outlier, 1, 2, Outlier}, 2)
	wantReps := []Representative{{Version: 2, Submission: 0}, {Version: 1, Submission: 1}}
	if !reflect.DeepEqual(s.Representatives, wantReps) {
		t.Fatalf("Representatives = %v, expected %v", s.Representatives, wantReps)
	}
	if !reflect.DeepEqual(s.Outliers, []int{2, 5}) {
		t.Fatalf("Outliers = %v, expected [2 5]", s.Outliers)
	}
	if s.Count != 2 {
		t.Fatalf("Count = %d, expected 2", s.Count)
	}
}
