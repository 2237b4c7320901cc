// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package roster holds the students enrolled on a course, against
// whom handwritten IDs are matched.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

var (
	// ErrEmpty is returned when a roster contains no students
	ErrEmpty = errors.New("roster is empty")
	// ErrNoUsableIDs is returned when no student id has the
	// expected number of digits
	ErrNoUsableIDs = errors.New("no roster ids of the expected length")
)

// Student is an enrolled student
type Student struct {
	ID   string
	Name string
}

// Roster is an ordered set of students whose ids all have the same
// number of digits. Order is kept so that ties are broken the same
// way every run.
type Roster struct {
	students []Student
	byID     map[string]int
	length   int
}

// New creates a Roster of students with ids of length digits.
// Students with ids of the wrong length or containing non-digits
// are left out, as are repeated ids after the first, with a note
// sent to logger.
func New(students []Student, length int, logger *log.Logger) (*Roster, error) {
	if len(students) == 0 {
		return nil, ErrEmpty
	}
	if length < 1 {
		return nil, fmt.Errorf("Invalid id length %d", length)
	}

	r := &Roster{byID: make(map[string]int), length: length}
	for _, s := range students {
		if !validID(s.ID, length) {
			logger.Printf("Skipping roster entry %q (%s): id is not %d digits\n", s.ID, s.Name, length)
			continue
		}
		if _, ok := r.byID[s.ID]; ok {
			logger.Printf("Skipping repeated roster id %s (%s)\n", s.ID, s.Name)
			continue
		}
		r.byID[s.ID] = len(r.students)
		r.students = append(r.students, s)
	}

	if len(r.students) == 0 {
		return nil, ErrNoUsableIDs
	}
	return r, nil
}

func validID(id string, length int) bool {
	if len(id) != length {
		return false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Students returns the students in the roster, in order
func (r *Roster) Students() []Student {
	return r.students
}

// Len returns the number of students in the roster
func (r *Roster) Len() int {
	return len(r.students)
}

// IDLength returns the number of digits in every id
func (r *Roster) IDLength() int {
	return r.length
}

// Lookup finds the student with a given id
func (r *Roster) Lookup(id string) (Student, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Student{}, false
	}
	return r.students[i], true
}

// ReadCSV parses student records from CSV, with the id in the
// first column and the name in the second. A header line is
// skipped if its first field is not numeric.
func ReadCSV(f io.Reader) ([]Student, error) {
	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var students []Student
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return students, fmt.Errorf("Error reading roster line %d: %v", line, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		id := strings.TrimSpace(rec[0])
		if line == 1 && !validID(id, len(id)) {
			continue
		}
		var name string
		if len(rec) > 1 {
			name = strings.TrimSpace(rec[1])
		}
		students = append(students, Student{ID: id, Name: name})
	}
	return students, nil
}

// Load reads a CSV roster file and builds a Roster from it
func Load(path string, length int, logger *log.Logger) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Error opening roster %s: %v", path, err)
	}
	defer f.Close()

	students, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return New(students, length, logger)
}
