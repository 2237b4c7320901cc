// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract OCRs images in process with the tesseract library
type Gosseract struct {
	Languages     []string
	clientFactory func() *gosseract.Client
}

// NewGosseract returns an Engine using the given tesseract languages
func NewGosseract(languages ...string) *Gosseract {
	return &Gosseract{Languages: languages, clientFactory: gosseract.NewClient}
}

// Text OCRs img with a new tesseract client
func (g *Gosseract) Text(ctx context.Context, img image.Image) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	var buf bytes.Buffer
	err := png.Encode(&buf, img)
	if err != nil {
		return "", fmt.Errorf("Error encoding image: %v", err)
	}

	c := g.clientFactory()
	defer c.Close()

	err = c.SetImageFromBytes(buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("Error setting image: %v", err)
	}
	if len(g.Languages) > 0 {
		err = c.SetLanguage(g.Languages...)
		if err != nil {
			return "", fmt.Errorf("Error setting languages: %v", err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("Error recognising text: %v", err)
	}
	return strings.TrimSpace(text), nil
}
