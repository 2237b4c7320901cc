// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package identify

import (
	"errors"
	"io"
	"log"
	"math"
	"testing"

	"rescribe.xyz/examid/classify"
	"rescribe.xyz/examid/digits"
	"rescribe.xyz/examid/roster"
)

func testRoster(t *testing.T) *roster.Roster {
	r, err := roster.New([]roster.Student{
		{ID: "12345678", Name: "Alice"},
		{ID: "87654321", Name: "Bob"},
	}, 8, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Could not create roster: %v", err)
	}
	return r
}

// certain returns probabilities which are sure of each digit of id
func certain(id string) []classify.Probabilities {
	probs := make([]classify.Probabilities, len(id))
	for i, c := range id {
		probs[i][c-'0'] = 1
	}
	return probs
}

func uniform(n int) []classify.Probabilities {
	probs := make([]classify.Probabilities, n)
	for i := range probs {
		for j := range probs[i] {
			probs[i][j] = 0.1
		}
	}
	return probs
}

func TestCutoff(t *testing.T) {
	if c := Cutoff(8); math.Abs(c-1e-5) > 1e-15 {
		t.Fatalf("Cutoff(8) = %g, expected 1e-5", c)
	}
	for l := 4; l <= 12; l++ {
		p := math.Pow(0.1, float64(l))
		if p >= Cutoff(l) {
			t.Errorf("Uniform probability %g reaches cutoff %g for length %d", p, Cutoff(l), l)
		}
	}
}

func TestJointProbability(t *testing.T) {
	cases := []struct {
		name  string
		id    string
		probs []classify.Probabilities
		want  float64
	}{
		{"certain", "12345678", certain("12345678"), 1},
		{"wrong", "87654321", certain("12345678"), 0},
		{"uniform", "12345678", uniform(8), 1e-8},
		{"length", "1234", uniform(8), 0},
		{"nondigit", "1234567x", uniform(8), 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := JointProbability(c.id, c.probs)
			if math.Abs(got-c.want) > 1e-15 {
				t.Fatalf("JointProbability = %g, expected %g", got, c.want)
			}
		})
	}
}

func TestJointProbabilityMonotonic(t *testing.T) {
	probs := uniform(8)
	base := JointProbability("12345678", probs)
	probs[3][4] = 0.5
	if up := JointProbability("12345678", probs); up <= base {
		t.Fatalf("Raising a digit probability did not raise the joint probability: %g <= %g", up, base)
	}
}

func TestBest(t *testing.T) {
	r := testRoster(t)

	m, ok := Best(r, certain("87654321"))
	if !ok || m.Student.Name != "Bob" || m.Prob != 1 {
		t.Fatalf("Best = %v, %v; expected Bob with probability 1", m, ok)
	}

	m, ok = Best(r, uniform(8))
	if !ok || m.Student.Name != "Alice" {
		t.Fatalf("Tie should go to the first roster entry, got %v", m)
	}
}

// fakeRenderer returns fixed digits for variants listed in good,
// and ErrNoDigit for the rest.
type fakeRenderer struct {
	good  map[digits.Variant]bool
	calls []digits.Variant
}

func (f *fakeRenderer) Render(v digits.Variant) ([]digits.Digit, error) {
	f.calls = append(f.calls, v)
	if !f.good[v] {
		return nil, digits.ErrNoDigit
	}
	return make([]digits.Digit, 8), nil
}

// sequence returns a classifier giving each successive batch the
// next set of probabilities in results.
func sequence(results ...[]classify.Probabilities) classify.Classifier {
	i := 0
	return classify.Func(func(batch []digits.Digit) ([]classify.Probabilities, error) {
		if i >= len(results) {
			return uniform(len(batch)), nil
		}
		r := results[i]
		i++
		return r, nil
	})
}

func TestIdentifyPage(t *testing.T) {
	r := testRoster(t)
	logger := log.New(io.Discard, "", 0)
	all := map[digits.Variant]bool{}
	for _, v := range digits.Variants {
		all[v] = true
	}

	t.Run("first", func(t *testing.T) {
		id := &Identifier{Roster: r, Classifier: sequence(certain("12345678")), Logger: logger}
		f := &fakeRenderer{good: all}
		c, err := id.IdentifyPage(3, 1, f)
		if err != nil {
			t.Fatalf("IdentifyPage failed: %v", err)
		}
		if c.StudentID != "12345678" || c.StudentName != "Alice" || c.Submission != 3 || c.Page != 1 {
			t.Fatalf("Unexpected candidate %+v", c)
		}
		if len(f.calls) != 1 {
			t.Fatalf("Expected to stop after the first variant, tried %d", len(f.calls))
		}
	})

	t.Run("fallback", func(t *testing.T) {
		id := &Identifier{Roster: r, Classifier: sequence(uniform(8), uniform(8), certain("87654321")), Logger: logger}
		f := &fakeRenderer{good: all}
		c, err := id.IdentifyPage(0, 0, f)
		if err != nil {
			t.Fatalf("IdentifyPage failed: %v", err)
		}
		if c.StudentID != "87654321" || c.Variant != digits.Erode.String() {
			t.Fatalf("Expected Bob from the erode variant, got %+v", c)
		}
	})

	t.Run("skipempty", func(t *testing.T) {
		id := &Identifier{Roster: r, Classifier: sequence(certain("12345678")), Logger: logger}
		f := &fakeRenderer{good: map[digits.Variant]bool{digits.Close: true}}
		c, err := id.IdentifyPage(0, 0, f)
		if err != nil {
			t.Fatalf("IdentifyPage failed: %v", err)
		}
		if c.StudentID != "12345678" || c.Variant != "close" {
			t.Fatalf("Expected Alice from the close variant, got %+v", c)
		}
	})

	t.Run("unclassified", func(t *testing.T) {
		id := &Identifier{Roster: r, Classifier: sequence(), Logger: logger}
		f := &fakeRenderer{good: all}
		c, err := id.IdentifyPage(0, 0, f)
		if err != nil {
			t.Fatalf("IdentifyPage failed: %v", err)
		}
		if c.Matched() || c.Prob != 0 {
			t.Fatalf("Expected an unmatched candidate with probability 0, got %+v", c)
		}
		if len(f.calls) != len(digits.Variants) {
			t.Fatalf("Expected every variant to be tried, tried %d", len(f.calls))
		}
	})

	t.Run("classifyerror", func(t *testing.T) {
		fail := classify.Func(func(batch []digits.Digit) ([]classify.Probabilities, error) {
			return nil, errors.New("model failure")
		})
		id := &Identifier{Roster: r, Classifier: fail, Logger: logger}
		_, err := id.IdentifyPage(0, 0, &fakeRenderer{good: all})
		if err == nil {
			t.Fatalf("Expected classifier error to be returned")
		}
	})

	t.Run("shortresult", func(t *testing.T) {
		short := classify.Func(func(batch []digits.Digit) ([]classify.Probabilities, error) {
			return uniform(2), nil
		})
		id := &Identifier{Roster: r, Classifier: short, Logger: logger}
		_, err := id.IdentifyPage(0, 0, &fakeRenderer{good: all})
		if err == nil {
			t.Fatalf("Expected an error when the classifier returns too few results")
		}
	})
}

func TestDedupe(t *testing.T) {
	cands := []Candidate{
		{Submission: 1, Page: 0, Prob: 0.2, StudentID: "a"},
		{Submission: 0, Page: 1, Prob: 0.5, StudentID: "b"},
		{Submission: 1, Page: 0, Prob: 0.9, StudentID: "c"},
		{Submission: 0, Page: 0, Prob: 0.1},
	}
	got := Dedupe(cands)
	if len(got) != 3 {
		t.Fatalf("Got %d candidates, expected 3", len(got))
	}
	if got[0].Submission != 0 || got[0].Page != 0 || got[1].Page != 1 {
		t.Fatalf("Candidates not sorted: %+v", got)
	}
	if got[2].StudentID != "c" {
		t.Fatalf("Highest probability duplicate not kept: %+v", got[2])
	}
}

func TestResolve(t *testing.T) {
	cutoff := Cutoff(8)
	cands := []Candidate{
		{Submission: 0, Page: 0, Prob: 0.9, StudentID: "12345678", StudentName: "Alice"},
		{Submission: 0, Page: 1, Prob: 0.95, StudentID: "12345678", StudentName: "Alice"},
		{Submission: 1, Page: 0, Prob: 0},
		{Submission: 2, Page: 0, Prob: 0.8, StudentID: "12345678", StudentName: "Alice"},
		{Submission: 2, Page: 1, Prob: 0.7, StudentID: "87654321", StudentName: "Bob"},
		{Submission: 3, Page: 0, Prob: 0.6, StudentID: "87654321", StudentName: "Bob"},
		{Submission: 4, Page: 0, Prob: 1e-9, StudentID: "87654321", StudentName: "Bob"},
	}
	previous := map[int]string{0: "12345678", 3: "12345678"}

	results := Resolve(cands, 6, cutoff, previous)
	if len(results) != 6 {
		t.Fatalf("Got %d results, expected 6", len(results))
	}

	cases := []struct {
		status Status
		id     string
		reset  bool
	}{
		{Classified, "12345678", false},
		{NotClassified, "", false},
		{Ambiguous, "", false},
		{Classified, "87654321", true},
		{NotClassified, "", false},
		{NotClassified, "", false},
	}
	for i, c := range cases {
		r := results[i]
		if r.Submission != i || r.Status != c.status || r.StudentID != c.id || r.ResetLinkage != c.reset {
			t.Errorf("Result %d = %+v, expected status %s id %q reset %v", i, r, c.status, c.id, c.reset)
		}
	}
	if results[0].Confidence != 0.95 || len(results[0].Pages) != 2 {
		t.Errorf("Classified result should keep the highest confidence and both pages: %+v", results[0])
	}
	if len(results[2].Conflicting) != 2 {
		t.Errorf("Ambiguous result should list both students: %+v", results[2])
	}

	counts := make(map[Status]int)
	resets := 0
	for _, r := range results {
		counts[r.Status]++
		if r.ResetLinkage {
			resets++
		}
	}
	if counts[Classified] != 2 || counts[NotClassified] != 3 || counts[Ambiguous] != 1 || resets != 1 {
		t.Errorf("Unexpected status counts %v, %d reset", counts, resets)
	}
}
