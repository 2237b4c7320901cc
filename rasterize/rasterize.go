// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package rasterize turns submitted PDFs into page images, and
// loads and crops page images for later processing.
package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	_ "golang.org/x/image/tiff"
	"rescribe.xyz/examid/ocr"
)

// Options controls how a PDF is rasterized
type Options struct {
	Cmd   string // defaults to "pdftoppm"
	DPI   int
	First int // first page to render, counting from 1; 0 means the first page
	Last  int // last page to render; 0 means the last page
}

// PageCount returns the number of pages in a PDF
func PageCount(path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Error reading pdf %s: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("Error opening pdf %s: %v", path, err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// Pages renders the pages of a PDF as png files in dir, returning
// their paths in page order.
func Pages(ctx context.Context, path string, dir string, o Options) ([]string, error) {
	n, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("No pages in %s", path)
	}

	first, last := o.First, o.Last
	if first < 1 {
		first = 1
	}
	if last < 1 || last > n {
		last = n
	}
	if first > last {
		return nil, fmt.Errorf("Page range %d-%d is outside the %d pages of %s", o.First, o.Last, n, path)
	}

	cmdname := o.Cmd
	if cmdname == "" {
		cmdname = "pdftoppm"
	}
	dpi := o.DPI
	if dpi < 1 {
		dpi = 150
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, fmt.Errorf("Error creating directory %s: %v", dir, err)
	}

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, cmdname, "-png", "-r", strconv.Itoa(dpi), "-f", strconv.Itoa(first), "-l", strconv.Itoa(last), path, prefix)
	ocr.HideCmd(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err != nil {
		return nil, fmt.Errorf("Error rasterizing %s: %s\nStdout: %s\nStderr: %s\n", path, err, stdout.String(), stderr.String())
	}

	matches, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return nil, fmt.Errorf("Error finding rasterized pages: %v", err)
	}
	return SortPages(matches), nil
}

// pageNum extracts the page number from a name like page-012.png
func pageNum(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	i := strings.LastIndex(base, "-")
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return -1
	}
	return n
}

// SortPages sorts paths of the form prefix-N.png by N
func SortPages(paths []string) []string {
	sort.SliceStable(paths, func(i, j int) bool {
		return pageNum(paths[i]) < pageNum(paths[j])
	})
	return paths
}

// Crop returns the part of img within r. An empty r returns the
// whole image.
func Crop(img image.Image, r image.Rectangle) image.Image {
	if r.Empty() {
		return img
	}
	return imaging.Crop(img, r)
}

// CropFile saves the part of the image at in within r to out
func CropFile(in, out string, r image.Rectangle) error {
	img, err := imaging.Open(in)
	if err != nil {
		return fmt.Errorf("Error opening %s: %v", in, err)
	}
	err = imaging.Save(Crop(img, r), out)
	if err != nil {
		return fmt.Errorf("Error saving %s: %v", out, err)
	}
	return nil
}

// LoadGray opens an image, crops it to r if r is not empty, and
// converts it to greyscale.
func LoadGray(path string, r image.Rectangle) (*image.Gray, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Error opening %s: %v", path, err)
	}
	g := imaging.Grayscale(Crop(img, r))
	b := g.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), g, b.Min, draw.Src)
	return gray, nil
}
