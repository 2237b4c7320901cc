// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package digits

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// ErrBadGeometry is returned when a box is too small to hold the
// configured number of cells once its margins are removed.
var ErrBadGeometry = errors.New("box too small for digit cells")

// Margins are the distances, in pixels, between the edge of a
// located box and the area containing the digit cells.
type Margins struct {
	Top, Bottom, Left, Right int
}

// Geometry describes how an ID box is divided into cells
type Geometry struct {
	Length     int
	Margins    Margins
	LineKernel int // width of the kernel used to find separator lines
}

// Box is a located ID box with its ruled lines removed, ready to
// have each digit cell cut out of it.
type Box struct {
	mat   gocv.Mat
	cells []image.Rectangle
}

// Segment crops r from a greyscale page, paints over any long
// horizontal lines, and divides the area inside the margins into
// g.Length equal-width cells.
func Segment(page gocv.Mat, r image.Rectangle, g Geometry) (*Box, error) {
	if g.Length < 1 {
		return nil, fmt.Errorf("Invalid id length %d", g.Length)
	}
	bounds := image.Rect(0, 0, page.Cols(), page.Rows())
	if !r.In(bounds) || r.Empty() {
		return nil, fmt.Errorf("Box %v lies outside page %v", r, bounds)
	}

	region := page.Region(r)
	crop := region.Clone()
	region.Close()

	if err := removeLines(&crop, g.LineKernel); err != nil {
		crop.Close()
		return nil, err
	}

	inner := image.Rect(g.Margins.Left, g.Margins.Top, r.Dx()-g.Margins.Right, r.Dy()-g.Margins.Bottom)
	if inner.Empty() || inner.Dx() < g.Length {
		crop.Close()
		return nil, ErrBadGeometry
	}

	w := inner.Dx() / g.Length
	cells := make([]image.Rectangle, g.Length)
	for i := range cells {
		x := inner.Min.X + i*w
		cells[i] = image.Rect(x, inner.Min.Y, x+w, inner.Max.Y)
	}

	return &Box{mat: crop, cells: cells}, nil
}

// removeLines finds horizontal strokes at least kwidth pixels long
// and paints them white.
func removeLines(crop *gocv.Mat, kwidth int) error {
	if kwidth < 1 {
		return nil
	}

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.Threshold(*crop, &bin, 0, 255, gocv.ThresholdBinaryInv+gocv.ThresholdOtsu)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(kwidth, 1))
	defer kernel.Close()

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.MorphologyEx(bin, &lines, gocv.MorphOpen, kernel)

	contours := gocv.FindContours(lines, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	if contours.Size() > 0 {
		gocv.DrawContours(crop, contours, -1, color.RGBA{255, 255, 255, 0}, 2)
	}
	return nil
}

// Len returns the number of cells in the box
func (b *Box) Len() int {
	return len(b.cells)
}

// CellRect returns the position of cell i within the box
func (b *Box) CellRect(i int) image.Rectangle {
	return b.cells[i]
}

// Cell returns a copy of cell i, which the caller must Close
func (b *Box) Cell(i int) gocv.Mat {
	region := b.mat.Region(b.cells[i])
	defer region.Close()
	return region.Clone()
}

// Mat returns the cleaned box image. It remains owned by the Box.
func (b *Box) Mat() gocv.Mat {
	return b.mat
}

// Close releases the memory held by the box
func (b *Box) Close() error {
	return b.mat.Close()
}
