// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package examid

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nickjwhite/gofpdf"
)

const pageWidth = 5 // pageWidth in inches

const captionHeight = 24

// pxToPt converts a pixel value into a pt value (72 pts per inch)
// This uses pageWidth to determine the appropriate value
func pxToPt(i int) float64 {
	return float64(i) / pageWidth
}

// Fpdf is a review document, with one page per image and a caption
// above each, so unclear results can be checked by eye.
type Fpdf struct {
	fpdf *gofpdf.Fpdf
}

// Setup creates a new PDF with appropriate settings and fonts
func (p *Fpdf) Setup() error {
	p.fpdf = gofpdf.New("P", "pt", "A4", "")
	p.fpdf.SetFont("Helvetica", "", 12)
	p.fpdf.SetAutoPageBreak(false, float64(0))
	return p.fpdf.Error()
}

// AddImagePage adds a page to the pdf with an image, sized to fit
// the page, beneath a caption
func (p *Fpdf) AddImagePage(imgpath, caption string) error {
	f, err := os.Open(imgpath)
	if err != nil {
		return errors.New(fmt.Sprintf("Could not open file %s: %v", imgpath, err))
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return errors.New(fmt.Sprintf("Could not decode image: %v", err))
	}
	b := img.Bounds()
	w, h := pxToPt(b.Dx()), pxToPt(b.Dy())
	p.fpdf.AddPageFormat("P", gofpdf.SizeType{Wd: w, Ht: h + captionHeight})

	tr := p.fpdf.UnicodeTranslatorFromDescriptor("")
	p.fpdf.SetXY(0, 0)
	p.fpdf.CellFormat(w, captionHeight, tr(caption), "", 0, "LM", false, 0, "")

	_ = p.fpdf.RegisterImageOptions(imgpath, gofpdf.ImageOptions{})
	p.fpdf.ImageOptions(imgpath, 0, captionHeight, w, h, false, gofpdf.ImageOptions{}, 0, "")

	return p.fpdf.Error()
}

// Pages returns the number of pages added so far
func (p *Fpdf) Pages() int {
	return p.fpdf.PageCount()
}

// Save saves the PDF to the file at path
func (p *Fpdf) Save(path string) error {
	return p.fpdf.OutputFileAndClose(path)
}
