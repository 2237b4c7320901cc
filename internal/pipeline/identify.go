// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
	"rescribe.xyz/examid"
	"rescribe.xyz/examid/classify"
	"rescribe.xyz/examid/digits"
	"rescribe.xyz/examid/identify"
	"rescribe.xyz/examid/internal/config"
	"rescribe.xyz/examid/locate"
	"rescribe.xyz/examid/roster"
)

// IdentifyJob describes an identification run for an assignment
type IdentifyJob struct {
	Assignment  string
	Submissions []Submission
	Pages       []int             // pages to search for an ID box; all if empty
	Previous    map[string]string // student previously assigned to each submission id
}

// Tools are the loaded resources an identification run needs
type Tools struct {
	Roster     *roster.Roster
	Template   *locate.Template
	Classifier classify.Classifier
}

// IdentifyReport is the outcome of an identification run
type IdentifyReport struct {
	Records []Record
	Summary Summary
}

type pageJob struct {
	sub, page int
	id, path  string
}

type pageResult struct {
	cand identify.Candidate
	box  string // saved image of the ID box, for unmatched pages
}

// pageIdentifier does the work for a single page
type pageIdentifier struct {
	cfg     *config.Config
	tools   Tools
	id      *identify.Identifier
	workdir string
}

func (p *pageIdentifier) page(j pageJob) (pageResult, error) {
	r := pageResult{cand: identify.Candidate{Submission: j.sub, Page: j.page}}

	img := gocv.IMRead(j.path, gocv.IMReadGrayScale)
	if img.Empty() {
		return r, fmt.Errorf("Could not read image %s", j.path)
	}
	defer img.Close()

	m, err := locate.Locate(img, p.tools.Template, p.cfg.LocateOptions())
	if err != nil {
		return r, err
	}

	box, err := digits.Segment(img, m.Rect, p.cfg.Geometry())
	if err != nil {
		return r, err
	}
	defer box.Close()

	cand, err := p.id.IdentifyPage(j.sub, j.page, digits.Cells{Box: box, Normalizer: p.cfg.Normalizer()})
	r.cand = cand
	if err != nil {
		return r, err
	}

	if !cand.Matched() {
		fn := filepath.Join(p.workdir, fmt.Sprintf("%s_%03d_box.png", j.id, j.page))
		if gocv.IMWrite(fn, box.Mat()) {
			r.box = fn
		}
	}
	return r, nil
}

// identifyPages reads page jobs from a channel and identifies each,
// sending the results on. A page which fails is logged and sent on
// unmatched, so one bad scan never stops the run. If the context
// is cancelled the error is sent to the errc channel and the
// function returns early.
func (p *pageIdentifier) identifyPages(ctx context.Context, jobs chan pageJob, results chan pageResult, errc chan error, logger *log.Logger) {
	for j := range jobs {
		select {
		case <-ctx.Done():
			for range jobs {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			return
		default:
		}
		logger.Println("Identifying", j.path)
		r, err := p.page(j)
		if err != nil {
			logger.Printf("Submission %s page %d not identified: %v\n", j.id, j.page, err)
		}
		results <- r
	}
}

// LoadRoster loads the roster at path, treating a roster which
// cannot be used as a configuration error.
func LoadRoster(path string, length int, logger *log.Logger) (*roster.Roster, error) {
	r, err := roster.Load(path, length, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	return r, nil
}

// Identify finds the student who wrote each submission of an
// assignment, saving the results, a graph of confidences and a
// review PDF of unidentified ID boxes to conn under the assignment
// name. Any graph or review PDF left by an earlier run which this
// run does not make is removed.
func Identify(ctx context.Context, cfg *config.Config, job IdentifyJob, tools Tools, conn Storer, logger *log.Logger) (IdentifyReport, error) {
	if tools.Roster == nil || tools.Template == nil || tools.Classifier == nil {
		return IdentifyReport{}, fmt.Errorf("%w: roster, template and classifier are all required", config.ErrInvalidConfig)
	}
	if tools.Roster.IDLength() != cfg.IDLength {
		return IdentifyReport{}, fmt.Errorf("%w: roster ids have %d digits, but id_length is %d", config.ErrInvalidConfig, tools.Roster.IDLength(), cfg.IDLength)
	}

	workdir, err := os.MkdirTemp(cfg.TempDir, "examid-identify")
	if err != nil {
		return IdentifyReport{}, fmt.Errorf("Error creating working directory: %v", err)
	}
	defer os.RemoveAll(workdir)

	p := &pageIdentifier{
		cfg:     cfg,
		tools:   tools,
		workdir: workdir,
		id: &identify.Identifier{
			Roster:     tools.Roster,
			Classifier: tools.Classifier,
			Logger:     logger,
		},
	}

	jobs := make(chan pageJob)
	results := make(chan pageResult)
	errc := make(chan error, cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.identifyPages(ctx, jobs, results, errc, logger)
		}()
	}
	go func() {
		defer close(jobs)
		for i, s := range job.Submissions {
			for _, pg := range pageIndices(s, job.Pages) {
				select {
				case jobs <- pageJob{sub: i, page: pg, id: s.ID, path: s.Pages[pg]}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var cands []identify.Candidate
	boxes := make(map[int]string)
	for r := range results {
		cands = append(cands, r.cand)
		if r.box != "" {
			if _, ok := boxes[r.cand.Submission]; !ok {
				boxes[r.cand.Submission] = r.box
			}
		}
	}

	select {
	case err := <-errc:
		return IdentifyReport{}, err
	default:
	}
	if err := ctx.Err(); err != nil {
		return IdentifyReport{}, err
	}

	previous := make(map[int]string)
	for i, s := range job.Submissions {
		if st, ok := job.Previous[s.ID]; ok {
			previous[i] = st
		}
	}

	cutoff := identify.Cutoff(tools.Roster.IDLength())
	resolved := identify.Resolve(cands, len(job.Submissions), cutoff, previous)
	records := make([]Record, len(resolved))
	for i, r := range resolved {
		records[i] = NewRecord(job.Submissions[i].ID, r)
		if r.Status == identify.Ambiguous {
			logger.Printf("Submission %s is ambiguous, its pages match students %v\n", records[i].SubmissionID, r.Conflicting)
		}
		if r.ResetLinkage {
			logger.Printf("Submission %s was previously assigned to %s, now %s; resetting its linkage\n", records[i].SubmissionID, job.Previous[records[i].SubmissionID], r.StudentID)
		}
	}

	report := IdentifyReport{Records: records, Summary: SummariseRecords(records)}

	files, err := writeIdentifyOutputs(workdir, job.Assignment, records, boxes, cutoff, logger)
	if err != nil {
		return report, err
	}
	err = removeStale(conn, job.Assignment, files, logger)
	if err != nil {
		return report, err
	}
	err = uploadAll(ctx, files, conn, job.Assignment, logger)
	if err != nil {
		return report, fmt.Errorf("Error uploading results: %v", err)
	}

	return report, nil
}

// optionalOutputs are identification outputs which are not made on
// every run.
var optionalOutputs = []string{"graph.png", "review.pdf"}

// removeStale deletes any optional output stored for the assignment
// which is not among files.
func removeStale(conn Storer, assignment string, files []string, logger *log.Logger) error {
	made := make(map[string]bool)
	for _, f := range files {
		made[filepath.Base(f)] = true
	}
	var stale []string
	for _, n := range optionalOutputs {
		if !made[n] {
			stale = append(stale, key(assignment, n))
		}
	}
	if len(stale) == 0 {
		return nil
	}
	logger.Println("Removing any earlier", stale)
	err := conn.DeleteObjects(conn.WIPStorageId(), stale)
	if err != nil {
		return fmt.Errorf("Error removing earlier outputs: %v", err)
	}
	return nil
}

// writeIdentifyOutputs saves the results file, the confidence graph
// and the review PDF, returning the paths of those made.
func writeIdentifyOutputs(dir, assignment string, records []Record, boxes map[int]string, cutoff float64, logger *log.Logger) ([]string, error) {
	fn := filepath.Join(dir, IdentificationFile)
	f, err := os.Create(fn)
	if err != nil {
		return nil, fmt.Errorf("Error creating %s: %v", fn, err)
	}
	err = WriteRecords(f, records)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("Error writing %s: %v", fn, err)
	}
	files := []string{fn}

	var confs []examid.Conf
	for _, r := range records {
		confs = append(confs, examid.Conf{Name: r.SubmissionID, Conf: r.Confidence, Review: r.Status != identify.Classified})
	}
	fn = filepath.Join(dir, "graph.png")
	gf, err := os.Create(fn)
	if err != nil {
		return nil, fmt.Errorf("Error creating %s: %v", fn, err)
	}
	err = examid.Graph(confs, cutoff, assignment, gf)
	gf.Close()
	if err != nil {
		logger.Println("Not creating graph:", err)
		_ = os.Remove(fn)
	} else {
		files = append(files, fn)
	}

	var pdf examid.Fpdf
	err = pdf.Setup()
	if err != nil {
		return nil, fmt.Errorf("Error setting up review pdf: %v", err)
	}
	for i, r := range records {
		if r.Status == identify.Classified {
			continue
		}
		b, ok := boxes[i]
		if !ok {
			continue
		}
		err = pdf.AddImagePage(b, fmt.Sprintf("%s: %s", r.SubmissionID, r.Status))
		if err != nil {
			logger.Printf("Error adding %s to review pdf: %v\n", b, err)
		}
	}
	if pdf.Pages() > 0 {
		fn = filepath.Join(dir, "review.pdf")
		err = pdf.Save(fn)
		if err != nil {
			return nil, fmt.Errorf("Error saving review pdf: %v", err)
		}
		files = append(files, fn)
	}

	return files, nil
}
