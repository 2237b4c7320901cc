// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"rescribe.xyz/examid/identify"
)

// IdentificationFile is the name of the results file saved for each
// assignment.
const IdentificationFile = "identification"

// Record is one line of an identification results file
type Record struct {
	SubmissionID string
	Status       identify.Status
	StudentID    string
	StudentName  string
	Confidence   float64
	ResetLinkage bool
}

// NewRecord makes a Record from the resolved result for a submission
func NewRecord(id string, r identify.Result) Record {
	return Record{
		SubmissionID: id,
		Status:       r.Status,
		StudentID:    r.StudentID,
		StudentName:  r.StudentName,
		Confidence:   r.Confidence,
		ResetLinkage: r.ResetLinkage,
	}
}

// WriteRecords writes records as tab separated lines of submission,
// status, student id, student name, confidence and whether the
// submission's linkage was reset.
func WriteRecords(w io.Writer, records []Record) error {
	for _, r := range records {
		reset := "0"
		if r.ResetLinkage {
			reset = "1"
		}
		name := strings.ReplaceAll(r.StudentName, "\t", " ")
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%s\n", r.SubmissionID, r.Status, r.StudentID, name, r.Confidence, reset)
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseIdentification reads records written by WriteRecords
func ParseIdentification(r io.Reader) ([]Record, error) {
	var records []Record
	s := bufio.NewScanner(r)
	n := 0
	for s.Scan() {
		n++
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		f := strings.Split(line, "\t")
		if len(f) != 6 {
			return records, fmt.Errorf("Error parsing line %d: expected 6 fields, got %d", n, len(f))
		}
		conf, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return records, fmt.Errorf("Error parsing confidence on line %d: %v", n, err)
		}
		records = append(records, Record{
			SubmissionID: f[0],
			Status:       identify.Status(f[1]),
			StudentID:    f[2],
			StudentName:  f[3],
			Confidence:   conf,
			ResetLinkage: f[5] == "1",
		})
	}
	return records, s.Err()
}

// ReadPrevious reads an identification results file, returning the
// student assigned to each classified submission.
func ReadPrevious(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Error opening %s: %v", path, err)
	}
	defer f.Close()

	records, err := ParseIdentification(f)
	if err != nil {
		return nil, fmt.Errorf("Error reading %s: %v", path, err)
	}

	prev := make(map[string]string)
	for _, r := range records {
		if r.Status == identify.Classified && r.StudentID != "" {
			prev[r.SubmissionID] = r.StudentID
		}
	}
	return prev, nil
}
