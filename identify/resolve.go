// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package identify

import (
	"sort"
)

// Status describes the outcome of identifying a submission
type Status string

const (
	Classified    Status = "classified"
	NotClassified Status = "unclassified"
	Ambiguous     Status = "ambiguous"
)

// Result is the final identification of one submission
type Result struct {
	Submission  int
	StudentID   string
	StudentName string
	Confidence  float64
	Status      Status
	Pages       []int    // pages which matched the student
	Conflicting []string // differing student ids, for ambiguous results
	// ResetLinkage is set when the submission was previously
	// assigned a different student, so any records linked to that
	// earlier identification must be invalidated.
	ResetLinkage bool
}

// Dedupe keeps a single candidate per submission and page, the one
// with the highest probability, and sorts them by submission then
// page.
func Dedupe(cands []Candidate) []Candidate {
	type key struct{ sub, page int }
	best := make(map[key]int)
	var out []Candidate
	for _, c := range cands {
		k := key{c.Submission, c.Page}
		i, ok := best[k]
		if !ok {
			best[k] = len(out)
			out = append(out, c)
			continue
		}
		if c.Prob > out[i].Prob {
			out[i] = c
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Submission != out[j].Submission {
			return out[i].Submission < out[j].Submission
		}
		return out[i].Page < out[j].Page
	})
	return out
}

// Resolve combines the page candidates of n submissions into one
// Result each. A submission is classified when every page matching
// at or above cutoff names the same student; if matching pages
// disagree it is ambiguous. previous maps submission indices to
// the student they were assigned by an earlier run, if any.
func Resolve(cands []Candidate, n int, cutoff float64, previous map[int]string) []Result {
	results := make([]Result, n)
	for i := range results {
		results[i] = Result{Submission: i, Status: NotClassified}
	}

	for _, c := range Dedupe(cands) {
		if c.Submission < 0 || c.Submission >= n {
			continue
		}
		if !c.Matched() || c.Prob < cutoff {
			continue
		}
		r := &results[c.Submission]
		switch {
		case r.StudentID == "" && r.Status == NotClassified:
			r.StudentID = c.StudentID
			r.StudentName = c.StudentName
			r.Confidence = c.Prob
			r.Status = Classified
			r.Pages = []int{c.Page}
		case r.StudentID == c.StudentID:
			r.Pages = append(r.Pages, c.Page)
			if c.Prob > r.Confidence {
				r.Confidence = c.Prob
			}
		default:
			if r.Status != Ambiguous {
				r.Conflicting = []string{r.StudentID}
				r.Status = Ambiguous
			}
			if !contains(r.Conflicting, c.StudentID) {
				r.Conflicting = append(r.Conflicting, c.StudentID)
			}
			r.Pages = append(r.Pages, c.Page)
			if c.Prob > r.Confidence {
				r.Confidence = c.Prob
			}
		}
	}

	for i := range results {
		r := &results[i]
		if r.Status == Ambiguous {
			r.StudentID = ""
			r.StudentName = ""
			continue
		}
		if r.Status != Classified {
			continue
		}
		prev, ok := previous[r.Submission]
		if ok && prev != "" && prev != r.StudentID {
			r.ResetLinkage = true
		}
	}

	return results
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
