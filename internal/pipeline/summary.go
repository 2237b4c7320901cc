// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"log"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"rescribe.xyz/examid/identify"
)

// Summary counts the outcomes of an identification or clustering run
type Summary struct {
	Classified    int
	NotClassified int
	Ambiguous     int
	Reset         int
	Versions      int
	Outliers      int
}

// SummariseRecords counts identification records by status
func SummariseRecords(records []Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Status {
		case identify.Classified:
			s.Classified++
		case identify.Ambiguous:
			s.Ambiguous++
		default:
			s.NotClassified++
		}
		if r.ResetLinkage {
			s.Reset++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("classified: %d, unclassified: %d, ambiguous: %d, reset: %d, versions: %d, outliers: %d",
		s.Classified, s.NotClassified, s.Ambiguous, s.Reset, s.Versions, s.Outliers)
}

// Log writes the summary to the logger
func (s Summary) Log(assignment string, logger *log.Logger) {
	logger.Printf("Summary for %s: %s\n", assignment, s)
}

// WriteMetrics saves the summary as prometheus gauges labelled with
// the assignment, in the textfile format read by node_exporter.
func (s Summary) WriteMetrics(path string, assignment string) error {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"assignment": assignment}
	gauge := func(name, help string, v int) {
		promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace:   "examid",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}).Set(float64(v))
	}

	gauge("classified_submissions", "Submissions matched to a student.", s.Classified)
	gauge("unclassified_submissions", "Submissions which could not be matched to a student.", s.NotClassified)
	gauge("ambiguous_submissions", "Submissions whose pages matched different students.", s.Ambiguous)
	gauge("reset_submissions", "Submissions whose previous student changed.", s.Reset)
	gauge("versions", "Versions found by clustering.", s.Versions)
	gauge("outlier_submissions", "Submissions not assigned to any version.", s.Outliers)

	err := prometheus.WriteToTextfile(path, reg)
	if err != nil {
		return fmt.Errorf("Error writing metrics to %s: %v", path, err)
	}
	return nil
}
