// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package integralimg

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func testImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 10, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			img.SetGray(x, y, color.Gray{uint8(x + 10*y)})
		}
	}
	return img
}

func naiveSum(img *image.Gray, r image.Rectangle) uint64 {
	var s uint64
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			s += uint64(img.GrayAt(x, y).Y)
		}
	}
	return s
}

func TestSum(t *testing.T) {
	img := testImage()
	integral := ToIntegralImg(img)

	cases := []struct {
		name string
		r    image.Rectangle
	}{
		{"whole", img.Bounds()},
		{"single", image.Rect(3, 2, 4, 3)},
		{"inner", image.Rect(2, 1, 7, 5)},
		{"topleft", image.Rect(0, 0, 3, 3)},
		{"clipped", image.Rect(-5, -5, 4, 20)},
		{"outside", image.Rect(20, 20, 30, 30)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			want := naiveSum(img, c.r)
			got := integral.Sum(c.r)
			if got != want {
				t.Fatalf("Sum(%v) = %d, want %d", c.r, got, want)
			}
		})
	}
}

func TestOffsetBounds(t *testing.T) {
	img := testImage().SubImage(image.Rect(2, 2, 8, 6)).(*image.Gray)
	integral := ToIntegralImg(img)
	r := image.Rect(3, 3, 6, 5)
	if got, want := integral.Sum(r), naiveSum(img, r); got != want {
		t.Fatalf("Sum(%v) = %d, want %d", r, got, want)
	}
	if integral.Bounds() != img.Bounds() {
		t.Fatalf("Bounds() = %v, want %v", integral.Bounds(), img.Bounds())
	}
}

func TestProportion(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		img.SetGray(x, 0, color.Gray{255})
	}
	integral := ToIntegralImg(img)
	if got := integral.Proportion(img.Bounds()); math.Abs(got-0.25) > 1e-9 {
		t.Fatalf("Proportion = %f, want 0.25", got)
	}
	if got := integral.Proportion(image.Rect(0, 0, 4, 1)); math.Abs(got-1) > 1e-9 {
		t.Fatalf("Proportion of top row = %f, want 1", got)
	}
	if got := integral.Mean(image.Rect(9, 9, 10, 10)); got != 0 {
		t.Fatalf("Mean of empty area = %f, want 0", got)
	}
}
