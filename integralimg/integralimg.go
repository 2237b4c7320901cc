// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package integralimg contains integral images of greyscale
// pictures, which allow the sum of any rectangular area to be
// found with four lookups. It is used to measure how much ink
// is present in a located ID box.
package integralimg

import (
	"image"
)

// I is the Integral Image. It carries a zero row and column
// before the image data, so I[y][x] is the sum of all pixels
// above and to the left of (x, y) in image coordinates.
type I struct {
	sums   [][]uint64
	bounds image.Rectangle
}

// ToIntegralImg creates an integral image
func ToIntegralImg(img *image.Gray) I {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	sums := make([][]uint64, h+1)
	sums[0] = make([]uint64, w+1)
	for y := 1; y <= h; y++ {
		row := make([]uint64, w+1)
		var rowsum uint64
		for x := 1; x <= w; x++ {
			rowsum += uint64(img.GrayAt(b.Min.X+x-1, b.Min.Y+y-1).Y)
			row[x] = sums[y-1][x] + rowsum
		}
		sums[y] = row
	}
	return I{sums: sums, bounds: b}
}

// Bounds returns the bounds of the image the integral was made from
func (i I) Bounds() image.Rectangle {
	return i.bounds
}

// Sum returns the sum of all pixels within r. The rectangle is
// clipped to the image bounds first.
func (i I) Sum(r image.Rectangle) uint64 {
	r = r.Intersect(i.bounds)
	if r.Empty() {
		return 0
	}
	x0, y0 := r.Min.X-i.bounds.Min.X, r.Min.Y-i.bounds.Min.Y
	x1, y1 := r.Max.X-i.bounds.Min.X, r.Max.Y-i.bounds.Min.Y
	return i.sums[y1][x1] + i.sums[y0][x0] - i.sums[y0][x1] - i.sums[y1][x0]
}

// Mean returns the average value of pixels within r
func (i I) Mean(r image.Rectangle) float64 {
	r = r.Intersect(i.bounds)
	if r.Empty() {
		return 0
	}
	return float64(i.Sum(r)) / float64(r.Dx()*r.Dy())
}

// Proportion returns the mean of r as a proportion of full
// intensity. For a binarised image with ink set to white this is
// the fraction of the area covered by ink.
func (i I) Proportion(r image.Rectangle) float64 {
	return i.Mean(r) / 255
}
