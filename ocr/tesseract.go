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
	"os"
	"os/exec"
	"path/filepath"
)

// Tesseract runs the tesseract command to produce hOCR, and reads
// the text from that.
type Tesseract struct {
	Cmd      string // defaults to "tesseract"
	Training string // training to use, without the .traineddata part
	TempDir  string // directory for intermediate files, defaults to os.TempDir
}

// Text OCRs img with tesseract
func (t Tesseract) Text(ctx context.Context, img image.Image) (string, error) {
	tesscmd := t.Cmd
	if tesscmd == "" {
		tesscmd = "tesseract"
	}
	training := t.Training
	if training == "" {
		training = "eng"
	}

	dir, err := os.MkdirTemp(t.TempDir, "examid-ocr")
	if err != nil {
		return "", fmt.Errorf("Error creating temporary directory: %v", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "page.png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("Error creating %s: %v", path, err)
	}
	err = png.Encode(f, img)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("Error encoding %s: %v", path, err)
	}

	name := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, tesscmd, "-l", training, path, name, "-c", "tessedit_create_hocr=1", "-c", "hocr_font_info=0")
	HideCmd(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err = cmd.Run()
	if err != nil {
		return "", fmt.Errorf("Error ocring with training %s: %s\nStdout: %s\nStderr: %s\n", training, err, stdout.String(), stderr.String())
	}

	b, err := os.ReadFile(name + ".hocr")
	if err != nil {
		return "", fmt.Errorf("Error reading hocr output: %v", err)
	}
	return HocrText(b)
}
