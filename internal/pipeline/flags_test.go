// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"image"
	"reflect"
	"testing"
)

func TestParsePages(t *testing.T) {
	cases := []struct {
		in   string
		want []int
		err  bool
	}{
		{"", nil, false},
		{"1", []int{0}, false},
		{"1,3", []int{0, 2}, false},
		{"2-4, 6", []int{1, 2, 3, 5}, false},
		{"0", nil, true},
		{"4-2", nil, true},
		{"a", nil, true},
		{"1-1000000000", nil, true},
		{"10001", nil, true},
		{"1-10000,1-10000", nil, true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParsePages(c.in)
			if c.err {
				if err == nil {
					t.Fatalf("Expected an error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePages failed: %v", err)
			}
			if len(got) != len(c.want) || (len(got) > 0 && !reflect.DeepEqual(got, c.want)) {
				t.Fatalf("ParsePages(%q) = %v, expected %v", c.in, got, c.want)
			}
		})
	}
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect("10, 20,110,70")
	if err != nil {
		t.Fatalf("ParseRect failed: %v", err)
	}
	if r != image.Rect(10, 20, 110, 70) {
		t.Errorf("ParseRect = %v", r)
	}
	r, err = ParseRect("")
	if err != nil || !r.Empty() {
		t.Errorf("Expected an empty rectangle, got %v, %v", r, err)
	}
	for _, s := range []string{"1,2,3", "5,5,5,5", "a,b,c,d"} {
		if _, err := ParseRect(s); err == nil {
			t.Errorf("Expected an error for %q", s)
		}
	}
}
