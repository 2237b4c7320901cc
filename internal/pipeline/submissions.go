// Copyright 2021 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"rescribe.xyz/examid/rasterize"
)

// Submission is one student's submitted work, as a list of page
// images in page order.
type Submission struct {
	ID    string
	Pages []string
}

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

func isImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}

type fileWalk chan string

// Walk sends the path of all files to the channel, with the exception of
// any file which starts with "."
func (f fileWalk) Walk(path string, info os.FileInfo, err error) error {
	if err != nil {
		return err
	}
	// skip files starting with . to prevent automatically generated
	// files like .DS_Store getting in the way
	if strings.HasPrefix(filepath.Base(path), ".") {
		if info.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	if !info.IsDir() {
		f <- path
	}
	return nil
}

// CheckImages checks that all image files in a directory can be
// decoded (skipping dotfiles), returning their paths in name order
func CheckImages(ctx context.Context, dir string) ([]string, error) {
	checker := make(fileWalk)
	go func() {
		_ = filepath.Walk(dir, checker.Walk)
		close(checker)
	}()

	var paths []string
	var err error
	for path := range checker {
		if err != nil {
			continue // consume the rest of the channel so the walker isn't blocked
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			continue
		default:
		}
		if !isImage(path) {
			continue
		}
		f, oerr := os.Open(path)
		if oerr != nil {
			err = fmt.Errorf("Opening image %s failed: %v", path, oerr)
			continue
		}
		_, _, derr := image.DecodeConfig(f)
		f.Close()
		if derr != nil {
			err = fmt.Errorf("Decoding image %s failed: %v", path, derr)
			continue
		}
		paths = append(paths, path)
	}
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("No images found")
	}

	return paths, nil
}

// ListSubmissions finds the submissions in dir, ordered by name.
// Each is either a PDF, which is rasterized into workdir, or a
// directory of page images. A submission whose pages cannot be
// read is kept, with no pages, so that it is reported rather than
// silently dropped.
func ListSubmissions(ctx context.Context, dir string, workdir string, ro rasterize.Options, logger *log.Logger) ([]Submission, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("Failed to read directory %s: %v", dir, err)
	}

	var subs []Submission
	for _, e := range entries {
		select {
		case <-ctx.Done():
			return subs, ctx.Err()
		default:
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		p := filepath.Join(dir, name)

		switch {
		case e.IsDir():
			pages, err := CheckImages(ctx, p)
			if err != nil {
				logger.Printf("Submission %s has no usable pages: %v\n", name, err)
			}
			subs = append(subs, Submission{ID: name, Pages: pages})
		case strings.ToLower(filepath.Ext(name)) == ".pdf":
			id := strings.TrimSuffix(name, filepath.Ext(name))
			logger.Println("Rasterizing", p)
			pages, err := rasterize.Pages(ctx, p, filepath.Join(workdir, id), ro)
			if err != nil {
				logger.Printf("Submission %s could not be rasterized: %v\n", id, err)
			}
			subs = append(subs, Submission{ID: id, Pages: pages})
		}
	}

	if len(subs) == 0 {
		return nil, fmt.Errorf("No submissions found in %s", dir)
	}
	return subs, nil
}

// pageIndices returns the indices of pages to use from a
// submission, keeping only those in want if it is not empty.
func pageIndices(s Submission, want []int) []int {
	if len(want) == 0 {
		idx := make([]int, len(s.Pages))
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	var idx []int
	for _, i := range want {
		if i >= 0 && i < len(s.Pages) {
			idx = append(idx, i)
		}
	}
	return idx
}
