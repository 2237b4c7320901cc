// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// maxPage is the highest page number ParsePages accepts
const maxPage = 10000

// ParsePages parses a comma separated list of page numbers,
// counting from 1, returning them as page indices counting from 0.
// Ranges like 2-4 are accepted. Pages after maxPage are an error.
func ParsePages(s string) ([]int, error) {
	var pages []int
	if strings.TrimSpace(s) == "" {
		return pages, nil
	}
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		first, last, isRange := strings.Cut(f, "-")
		a, err := strconv.Atoi(first)
		if err != nil || a < 1 || a > maxPage {
			return nil, fmt.Errorf("Invalid page %q", f)
		}
		b := a
		if isRange {
			b, err = strconv.Atoi(last)
			if err != nil || b < a || b > maxPage {
				return nil, fmt.Errorf("Invalid page range %q", f)
			}
		}
		if len(pages)+b-a+1 > maxPage {
			return nil, fmt.Errorf("Too many pages in %q", s)
		}
		for i := a; i <= b; i++ {
			pages = append(pages, i-1)
		}
	}
	return pages, nil
}

// ParseRect parses a rectangle given as x0,y0,x1,y1. An empty
// string is the empty rectangle.
func ParseRect(s string) (image.Rectangle, error) {
	if strings.TrimSpace(s) == "" {
		return image.Rectangle{}, nil
	}
	f := strings.Split(s, ",")
	if len(f) != 4 {
		return image.Rectangle{}, fmt.Errorf("Invalid rectangle %q, expected x0,y0,x1,y1", s)
	}
	var n [4]int
	for i := range f {
		v, err := strconv.Atoi(strings.TrimSpace(f[i]))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("Invalid rectangle %q: %v", s, err)
		}
		n[i] = v
	}
	r := image.Rect(n[0], n[1], n[2], n[3])
	if r.Empty() {
		return r, fmt.Errorf("Rectangle %q is empty", s)
	}
	return r, nil
}
