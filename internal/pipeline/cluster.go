// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"rescribe.xyz/examid"
	"rescribe.xyz/examid/internal/config"
	"rescribe.xyz/examid/ocr"
	"rescribe.xyz/examid/rasterize"
	"rescribe.xyz/examid/version"
	"rescribe.xyz/preproc"
)

// Sauvola settings used to clean page crops before OCR
const (
	sauvolaKsize = 0.3
	sauvolaWsize = 29
)

// ClusterJob describes a version clustering run for an assignment
type ClusterJob struct {
	Assignment  string
	Submissions []Submission
	Pages       []int           // pages whose text is compared; all if empty
	Crop        image.Rectangle // part of each page to OCR; whole page if empty
	RefPage     int             // page saved as a version's representative
}

// ClusterReport is the outcome of a clustering run
type ClusterReport struct {
	Versions VersionSet
	State    version.State
	Summary  Summary
}

type textJob struct {
	sub   int
	id    string
	pages []string
}

type textResult struct {
	sub  int
	text string
}

// ocrPages reads submissions from a channel and OCRs the chosen
// pages of each, sending the joined text on. A page which can't be
// read is logged and contributes no text. If the context is
// cancelled the error is sent to the errc channel and the function
// returns early.
func ocrPages(ctx context.Context, jobs chan textJob, results chan textResult, errc chan error, crop image.Rectangle, engine ocr.Engine, logger *log.Logger) {
	for j := range jobs {
		select {
		case <-ctx.Done():
			for range jobs {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			return
		default:
		}
		var texts []string
		for _, p := range j.pages {
			logger.Println("OCRing", p)
			img, err := rasterize.LoadGray(p, crop)
			if err != nil {
				logger.Printf("Submission %s: %v\n", j.id, err)
				continue
			}
			txt, err := engine.Text(ctx, preproc.IntegralSauvola(img, sauvolaKsize, sauvolaWsize))
			if err != nil {
				logger.Printf("Submission %s: error OCRing %s: %v\n", j.id, p, err)
				continue
			}
			texts = append(texts, txt)
		}
		results <- textResult{sub: j.sub, text: strings.Join(texts, "\n")}
	}
}

// Texts OCRs the chosen pages of every submission across the
// configured number of workers, returning one text per submission.
func Texts(ctx context.Context, cfg *config.Config, job ClusterJob, engine ocr.Engine, logger *log.Logger) ([]string, error) {
	jobs := make(chan textJob)
	results := make(chan textResult)
	errc := make(chan error, cfg.Workers)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ocrPages(ctx, jobs, results, errc, job.Crop, engine, logger)
		}()
	}
	go func() {
		defer close(jobs)
		for i, s := range job.Submissions {
			var pages []string
			for _, pg := range pageIndices(s, job.Pages) {
				pages = append(pages, s.Pages[pg])
			}
			select {
			case jobs <- textJob{sub: i, id: s.ID, pages: pages}:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	texts := make([]string, len(job.Submissions))
	for r := range results {
		texts[r.sub] = r.text
	}

	select {
	case err := <-errc:
		return nil, err
	default:
	}
	return texts, ctx.Err()
}

// Cluster groups the submissions of an assignment into versions by
// the text of their pages, and replaces any version state saved for
// the assignment with the new one.
func Cluster(ctx context.Context, cfg *config.Config, job ClusterJob, engine ocr.Engine, conn Storer, logger *log.Logger) (ClusterReport, error) {
	texts, err := Texts(ctx, cfg, job, engine, logger)
	if err != nil {
		return ClusterReport{}, err
	}

	labels, count := version.Cluster(texts, cfg.ClusterParams())
	state := version.Assign(labels, count)
	logger.Printf("Found %d versions and %d outliers in %d submissions\n", state.Count, len(state.Outliers), len(labels))

	workdir, err := os.MkdirTemp(cfg.TempDir, "examid-cluster")
	if err != nil {
		return ClusterReport{}, fmt.Errorf("Error creating working directory: %v", err)
	}
	defer os.RemoveAll(workdir)

	vs := VersionSet{RunID: uuid.NewString(), Assignments: make(map[string]int)}
	for i, v := range state.Versions {
		if v != version.Outlier {
			vs.Assignments[job.Submissions[i].ID] = v
		}
	}

	var pdf examid.Fpdf
	err = pdf.Setup()
	if err != nil {
		return ClusterReport{}, fmt.Errorf("Error setting up versions pdf: %v", err)
	}
	images := make(map[int]string)
	for _, r := range state.Representatives {
		s := job.Submissions[r.Submission]
		if job.RefPage < 0 || job.RefPage >= len(s.Pages) {
			logger.Printf("Submission %s has no page %d, so version %d has no representative\n", s.ID, job.RefPage, r.Version)
			continue
		}
		fn := filepath.Join(workdir, fmt.Sprintf("version-%d.png", r.Version))
		err = rasterize.CropFile(s.Pages[job.RefPage], fn, job.Crop)
		if err != nil {
			logger.Printf("Error saving representative of version %d: %v\n", r.Version, err)
			continue
		}
		images[r.Version] = fn
		err = pdf.AddImagePage(fn, fmt.Sprintf("Version %d: %s", r.Version, s.ID))
		if err != nil {
			logger.Printf("Error adding version %d to pdf: %v\n", r.Version, err)
		}
	}

	var extra []string
	if pdf.Pages() > 0 {
		fn := filepath.Join(workdir, "versions.pdf")
		err = pdf.Save(fn)
		if err != nil {
			return ClusterReport{}, fmt.Errorf("Error saving versions pdf: %v", err)
		}
		extra = append(extra, fn)
	}

	vs, err = ReplaceVersions(ctx, conn, job.Assignment, vs, images, extra, workdir, logger)
	if err != nil {
		return ClusterReport{}, err
	}

	return ClusterReport{
		Versions: vs,
		State:    state,
		Summary:  Summary{Versions: state.Count, Outliers: len(state.Outliers)},
	}, nil
}
