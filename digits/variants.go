// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package digits

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Variant is a morphological transform applied to a binarised
// cell before its digit is extracted. Alternative renderings give
// the classifier further chances on faint or heavy handwriting.
type Variant int

const (
	None Variant = iota
	Dilate
	Erode
	Open
	Close
	Gradient
	TopHat
	BlackHat
)

// Variants lists every variant in the order they should be tried
var Variants = []Variant{None, Dilate, Erode, Open, Close, Gradient, TopHat, BlackHat}

func (v Variant) String() string {
	switch v {
	case None:
		return "none"
	case Dilate:
		return "dilate"
	case Erode:
		return "erode"
	case Open:
		return "open"
	case Close:
		return "close"
	case Gradient:
		return "gradient"
	case TopHat:
		return "tophat"
	case BlackHat:
		return "blackhat"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Apply renders src into dst using the variant, with a square
// rectangular structuring element of the given size.
func (v Variant) Apply(src gocv.Mat, dst *gocv.Mat, ksize int) error {
	if ksize < 1 {
		ksize = 1
	}
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(ksize, ksize))
	defer kernel.Close()

	switch v {
	case None:
		src.CopyTo(dst)
	case Dilate:
		gocv.Dilate(src, dst, kernel)
	case Erode:
		gocv.Erode(src, dst, kernel)
	case Open:
		gocv.MorphologyEx(src, dst, gocv.MorphOpen, kernel)
	case Close:
		gocv.MorphologyEx(src, dst, gocv.MorphClose, kernel)
	case Gradient:
		gocv.MorphologyEx(src, dst, gocv.MorphGradient, kernel)
	case TopHat:
		gocv.MorphologyEx(src, dst, gocv.MorphTophat, kernel)
	case BlackHat:
		gocv.MorphologyEx(src, dst, gocv.MorphBlackhat, kernel)
	default:
		return fmt.Errorf("Unknown variant %d", int(v))
	}
	return nil
}
