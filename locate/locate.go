// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package locate finds the handwritten ID box on a scanned page
// by matching it against a template image.
package locate

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
	"rescribe.xyz/examid/integralimg"
)

// ErrRegionNotFound is returned when no plausible match for the
// template exists on a page.
var ErrRegionNotFound = errors.New("id region not found")

// Template is a greyscale picture of an empty ID box. Its mask
// marks which pixels take part in matching; an empty mask means
// every pixel does.
type Template struct {
	img  gocv.Mat
	mask gocv.Mat
}

// LoadTemplate reads a template image from disk. If the image has
// an alpha channel it is used as the mask.
func LoadTemplate(path string) (*Template, error) {
	src := gocv.IMRead(path, gocv.IMReadUnchanged)
	if src.Empty() {
		return nil, fmt.Errorf("Error reading template %s", path)
	}
	defer src.Close()

	gray := gocv.NewMat()
	mask := gocv.NewMat()
	switch src.Channels() {
	case 4:
		channels := gocv.Split(src)
		channels[3].CopyTo(&mask)
		for _, c := range channels {
			c.Close()
		}
		gocv.CvtColor(src, &gray, gocv.ColorBGRAToGray)
	case 3:
		gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	default:
		src.CopyTo(&gray)
	}

	return NewTemplate(gray, mask)
}

// NewTemplate creates a Template from a greyscale image and a mask
// of the same size, or an empty mask. The Template takes ownership
// of both.
func NewTemplate(img, mask gocv.Mat) (*Template, error) {
	if img.Empty() {
		img.Close()
		mask.Close()
		return nil, errors.New("Empty template image")
	}
	if !mask.Empty() && (mask.Rows() != img.Rows() || mask.Cols() != img.Cols()) {
		img.Close()
		mask.Close()
		return nil, fmt.Errorf("Template mask is %dx%d, image is %dx%d", mask.Cols(), mask.Rows(), img.Cols(), img.Rows())
	}
	eroded := erode(img)
	img.Close()
	return &Template{img: eroded, mask: mask}, nil
}

// Size returns the width and height of the template
func (t *Template) Size() image.Point {
	return image.Pt(t.img.Cols(), t.img.Rows())
}

// Close releases the memory held by the template
func (t *Template) Close() error {
	t.mask.Close()
	return t.img.Close()
}

// erode thickens the dark strokes of an image slightly, so that
// thin ruled lines still match on scans of differing quality.
func erode(src gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3))
	defer kernel.Close()
	dst := gocv.NewMat()
	gocv.Erode(src, &dst, kernel)
	return dst
}

// Options sets optional checks on a match. Zero values disable
// each check.
type Options struct {
	MaxScore float32 // highest acceptable normalised squared difference
	MinInk   float64 // least proportion of the box which must be ink
}

// Match is the position of the template on a page
type Match struct {
	Rect  image.Rectangle
	Score float32
}

// Locate finds the position on a greyscale page where the template
// matches best, using the normalised squared difference between
// the two.
func Locate(page gocv.Mat, t *Template, opts Options) (Match, error) {
	size := t.Size()
	if page.Empty() || page.Cols() < size.X || page.Rows() < size.Y {
		return Match{}, ErrRegionNotFound
	}

	eroded := erode(page)
	defer eroded.Close()

	result := gocv.NewMat()
	defer result.Close()
	gocv.MatchTemplate(eroded, t.img, &result, gocv.TmSqdiffNormed, t.mask)

	minVal, _, minLoc, _ := gocv.MinMaxLoc(result)
	score := float64(minVal)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return Match{}, ErrRegionNotFound
	}

	m := Match{
		Rect:  image.Rectangle{Min: minLoc, Max: minLoc.Add(size)},
		Score: minVal,
	}
	if !m.Rect.In(image.Rect(0, 0, page.Cols(), page.Rows())) {
		return Match{}, ErrRegionNotFound
	}
	if opts.MaxScore > 0 && m.Score > opts.MaxScore {
		return m, fmt.Errorf("%w: match score %.4f above %.4f", ErrRegionNotFound, m.Score, opts.MaxScore)
	}
	if opts.MinInk > 0 {
		ink, err := Ink(page, m.Rect)
		if err != nil {
			return m, err
		}
		if ink < opts.MinInk {
			return m, fmt.Errorf("%w: ink proportion %.4f below %.4f", ErrRegionNotFound, ink, opts.MinInk)
		}
	}

	return m, nil
}

// Ink returns the proportion of r on a greyscale page which is
// dark once the area is binarised.
func Ink(page gocv.Mat, r image.Rectangle) (float64, error) {
	region := page.Region(r)
	defer region.Close()

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(region, &bin, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

	img, err := bin.ToImage()
	if err != nil {
		return 0, fmt.Errorf("Error converting box to image: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		return 0, errors.New("Box did not convert to a greyscale image")
	}
	integral := integralimg.ToIntegralImg(gray)
	return integral.Proportion(integral.Bounds()), nil
}
