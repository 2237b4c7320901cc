// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package digits

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// ErrNoDigit is returned when a cell contains no usable ink once
// marks touching its edges have been discarded.
var ErrNoDigit = errors.New("no digit found in cell")

// Digit is a normalised digit image, Size pixels square, stored
// row by row with values between 0 and 1. Ink is bright.
type Digit struct {
	Size int
	Pix  []float32
}

// At returns the value of the pixel at x, y
func (d Digit) At(x, y int) float32 {
	return d.Pix[y*d.Size+x]
}

// Normalizer turns a cell image into a centred digit in the
// format the classifier was trained on.
type Normalizer struct {
	Threshold    float32 // ink threshold, applied after inversion
	EdgeDistance float64 // contours centred nearer than this to an edge are discarded
	Fit          int     // size of the longest side of the digit once scaled
	Size         int     // size of the final padded square
	Kernel       int     // structuring element size for variants
}

// NewNormalizer returns a Normalizer with the usual settings for
// 28 pixel digits.
func NewNormalizer() Normalizer {
	return Normalizer{
		Threshold:    128,
		EdgeDistance: 3,
		Fit:          20,
		Size:         28,
		Kernel:       2,
	}
}

// Normalize extracts the digit in cell, rendered with variant v
func (n Normalizer) Normalize(cell gocv.Mat, v Variant) (Digit, error) {
	if cell.Empty() {
		return Digit{}, ErrNoDigit
	}
	if n.Fit < 1 || n.Size < n.Fit {
		return Digit{}, fmt.Errorf("Invalid digit sizes: fit %d, size %d", n.Fit, n.Size)
	}

	inv := gocv.NewMat()
	defer inv.Close()
	gocv.BitwiseNot(cell, &inv)

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(inv, &bin, n.Threshold, 255, gocv.ThresholdBinary)

	morphed := gocv.NewMat()
	defer morphed.Close()
	err := v.Apply(bin, &morphed, n.Kernel)
	if err != nil {
		return Digit{}, err
	}

	bbox, ok := n.digitBounds(morphed)
	if !ok {
		return Digit{}, ErrNoDigit
	}

	region := morphed.Region(bbox)
	defer region.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	gocv.Resize(region, &scaled, fitSize(bbox.Dx(), bbox.Dy(), n.Fit), 0, 0, interpolation(bbox, n.Fit))

	padded := gocv.NewMat()
	defer padded.Close()
	if !n.pad(scaled, &padded) {
		return Digit{}, ErrNoDigit
	}

	return toDigit(padded, n.Size)
}

// digitBounds returns the union of the bounding boxes of every
// contour whose centre lies far enough from the cell edges.
func (n Normalizer) digitBounds(bin gocv.Mat) (image.Rectangle, bool) {
	contours := gocv.FindContours(bin, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	w, h := float64(bin.Cols()), float64(bin.Rows())
	var bbox image.Rectangle
	found := false
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		cx, cy := centroid(c.ToPoints())
		if cx < n.EdgeDistance || cy < n.EdgeDistance || cx > w-n.EdgeDistance || cy > h-n.EdgeDistance {
			continue
		}
		r := gocv.BoundingRect(c)
		if !found {
			bbox = r
			found = true
			continue
		}
		bbox = bbox.Union(r)
	}
	bbox = bbox.Intersect(image.Rect(0, 0, bin.Cols(), bin.Rows()))
	return bbox, found && !bbox.Empty()
}

// centroid finds the centre of mass of a closed polygon. Contours
// which enclose no area, such as thin strokes, use the mean of
// their points instead.
func centroid(pts []image.Point) (float64, float64) {
	if len(pts) == 0 {
		return 0, 0
	}
	var a, cx, cy float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		cross := float64(p.X*q.Y - q.X*p.Y)
		a += cross
		cx += float64(p.X+q.X) * cross
		cy += float64(p.Y+q.Y) * cross
	}
	if a == 0 {
		var sx, sy float64
		for _, p := range pts {
			sx += float64(p.X)
			sy += float64(p.Y)
		}
		return sx / float64(len(pts)), sy / float64(len(pts))
	}
	return cx / (3 * a), cy / (3 * a)
}

// fitSize scales w and h so the larger of them equals fit,
// preserving the aspect ratio.
func fitSize(w, h, fit int) image.Point {
	if w >= h {
		nh := int(math.Round(float64(h) * float64(fit) / float64(w)))
		if nh < 1 {
			nh = 1
		}
		return image.Pt(fit, nh)
	}
	nw := int(math.Round(float64(w) * float64(fit) / float64(h)))
	if nw < 1 {
		nw = 1
	}
	return image.Pt(nw, fit)
}

func interpolation(r image.Rectangle, fit int) gocv.InterpolationFlags {
	if r.Dx() > fit || r.Dy() > fit {
		return gocv.InterpolationArea
	}
	return gocv.InterpolationCubic
}

// pad places the scaled digit in a Size square so that its centre
// of mass sits as near the middle as the digit allows.
func (n Normalizer) pad(scaled gocv.Mat, dst *gocv.Mat) bool {
	m := gocv.Moments(scaled, false)
	if m["m00"] == 0 {
		return false
	}
	cx, cy := m["m10"]/m["m00"], m["m01"]/m["m00"]

	left, right := offsets(cx, scaled.Cols(), n.Size)
	top, bottom := offsets(cy, scaled.Rows(), n.Size)
	gocv.CopyMakeBorder(scaled, dst, top, bottom, left, right, gocv.BorderConstant, color.RGBA{})
	return true
}

// offsets returns the padding needed before and after a span of
// length l so that c ends up at the centre of size.
func offsets(c float64, l, size int) (int, int) {
	before := int(math.Round(float64(size)/2 - c))
	if before < 0 {
		before = 0
	}
	if before > size-l {
		before = size - l
	}
	return before, size - l - before
}

func toDigit(m gocv.Mat, size int) (Digit, error) {
	if m.Rows() != size || m.Cols() != size {
		return Digit{}, fmt.Errorf("Normalised digit is %dx%d, not %dx%d", m.Cols(), m.Rows(), size, size)
	}
	b := m.ToBytes()
	var max byte
	for _, v := range b {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return Digit{}, ErrNoDigit
	}
	d := Digit{Size: size, Pix: make([]float32, len(b))}
	for i, v := range b {
		d.Pix[i] = float32(v) / float32(max)
	}
	return d, nil
}

// Cells pairs a segmented box with the Normalizer used to render
// its cells.
type Cells struct {
	Box        *Box
	Normalizer Normalizer
}

// Render normalises every cell of the box with variant v. If any
// cell holds no digit the whole rendering fails with ErrNoDigit.
func (c Cells) Render(v Variant) ([]Digit, error) {
	digits := make([]Digit, 0, c.Box.Len())
	for i := 0; i < c.Box.Len(); i++ {
		cell := c.Box.Cell(i)
		d, err := c.Normalizer.Normalize(cell, v)
		cell.Close()
		if err != nil {
			return nil, err
		}
		digits = append(digits, d)
	}
	return digits, nil
}
