// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package ocr extracts plain text from page images, either by
// running the tesseract command or through its library bindings.
package ocr

import (
	"context"
	"html"
	"image"
	"strings"

	"rescribe.xyz/utils/pkg/hocr"
)

// Engine reads the text in an image. An image with no readable
// text gives an empty string rather than an error; errors are
// kept for failures of the engine itself.
type Engine interface {
	Text(ctx context.Context, img image.Image) (string, error)
}

// HocrText returns the words of an hOCR document, one line of the
// document per line of text.
func HocrText(b []byte) (string, error) {
	h, err := hocr.Parse(b)
	if err != nil {
		return "", err
	}
	var lines []string
	for _, l := range h.Lines {
		var words []string
		for _, w := range l.Words {
			t := strings.TrimSpace(html.UnescapeString(w.Text))
			if t != "" {
				words = append(words, t)
			}
		}
		if len(words) > 0 {
			lines = append(lines, strings.Join(words, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}
