// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package ocr

import (
	"testing"
)

const testHocr = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN"
    "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">
<html xmlns="http://www.w3.org/1999/xhtml" xml:lang="en" lang="en">
 <head>
  <title></title>
  <meta http-equiv="Content-Type" content="text/html;charset=utf-8"/>
  <meta name='ocr-system' content='tesseract 4.1.1' />
 </head>
 <body>
  <div class='ocr_page' id='page_1' title='image "page.png"; bbox 0 0 600 400; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 20 20 580 120">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 20 20 580 120">
     <span class='ocr_line' id='line_1_1' title="bbox 20 20 580 60; baseline 0 -8; x_size 30; x_descenders 6; x_ascenders 8">
      <span class='ocrx_word' id='word_1_1' title='bbox 20 20 200 60; x_wconf 91'>Midterm</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 220 20 380 60; x_wconf 90'>Version</span>
      <span class='ocrx_word' id='word_1_3' title='bbox 400 20 580 60; x_wconf 88'>B</span>
     </span>
     <span class='ocr_line' id='line_1_2' title="bbox 20 80 580 120; baseline 0 -8; x_size 30; x_descenders 6; x_ascenders 8">
      <span class='ocrx_word' id='word_1_4' title='bbox 20 80 300 120; x_wconf 85'>Q1 &amp; Q2</span>
      <span class='ocrx_word' id='word_1_5' title='bbox 320 80 580 120; x_wconf 10'> </span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>
`

func TestHocrText(t *testing.T) {
	got, err := HocrText([]byte(testHocr))
	if err != nil {
		t.Fatalf("HocrText failed: %v", err)
	}
	want := "Midterm Version B\nQ1 & Q2"
	if got != want {
		t.Fatalf("HocrText = %q, expected %q", got, want)
	}
}

func TestHocrTextInvalid(t *testing.T) {
	_, err := HocrText([]byte("<html><body><div"))
	if err == nil {
		t.Fatalf("Expected an error for truncated hocr")
	}
}
