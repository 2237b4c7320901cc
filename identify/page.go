// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package identify

import (
	"errors"
	"fmt"
	"log"

	"rescribe.xyz/examid/classify"
	"rescribe.xyz/examid/digits"
	"rescribe.xyz/examid/roster"
)

// Candidate is the best identification found on one page of a
// submission. An unmatched candidate has an empty StudentID.
type Candidate struct {
	Submission  int
	Page        int
	StudentID   string
	StudentName string
	Prob        float64
	Variant     string
}

// Matched reports whether the candidate names a student
func (c Candidate) Matched() bool {
	return c.StudentID != ""
}

// Renderer produces the normalised digits of an ID box under a
// given variant. digits.Cells is the usual implementation.
type Renderer interface {
	Render(v digits.Variant) ([]digits.Digit, error)
}

// Identifier reads ID boxes and matches them against a roster
type Identifier struct {
	Roster     *roster.Roster
	Classifier classify.Classifier
	Variants   []digits.Variant
	Logger     *log.Logger
}

// IdentifyPage tries each variant in turn, classifying the digits
// and matching them against the roster, stopping at the first
// match at or above the cutoff. If no variant gives such a match
// an unmatched Candidate is returned. Only classifier failures
// are returned as errors.
func (id *Identifier) IdentifyPage(sub, page int, r Renderer) (Candidate, error) {
	c := Candidate{Submission: sub, Page: page}
	cutoff := Cutoff(id.Roster.IDLength())

	variants := id.Variants
	if len(variants) == 0 {
		variants = digits.Variants
	}

	for _, v := range variants {
		ds, err := r.Render(v)
		if errors.Is(err, digits.ErrNoDigit) {
			id.Logger.Printf("Submission %d page %d: no digit in a cell with variant %s\n", sub, page, v)
			continue
		}
		if err != nil {
			return c, fmt.Errorf("Error rendering digits with variant %s: %v", v, err)
		}
		if len(ds) != id.Roster.IDLength() {
			id.Logger.Printf("Submission %d page %d: got %d digits, expected %d\n", sub, page, len(ds), id.Roster.IDLength())
			continue
		}

		probs, err := id.Classifier.Classify(ds)
		if err != nil {
			return c, fmt.Errorf("Error classifying digits: %v", err)
		}
		if len(probs) != len(ds) {
			return c, fmt.Errorf("Classifier returned %d results for %d digits", len(probs), len(ds))
		}

		m, ok := Best(id.Roster, probs)
		if ok && m.Prob >= cutoff {
			c.StudentID = m.Student.ID
			c.StudentName = m.Student.Name
			c.Prob = m.Prob
			c.Variant = v.String()
			return c, nil
		}
	}

	return c, nil
}
