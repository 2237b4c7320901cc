// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// Package config holds the settings shared by the identification
// and clustering tools, layered from defaults, an optional YAML
// file and EXAMID_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"rescribe.xyz/examid/classify"
	"rescribe.xyz/examid/digits"
	"rescribe.xyz/examid/locate"
	"rescribe.xyz/examid/ocr"
	"rescribe.xyz/examid/rasterize"
	"rescribe.xyz/examid/version"
)

// ErrInvalidConfig is wrapped by every error caused by a setting
// or input which makes a whole run impossible.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains process configuration
type Config struct {
	IDLength int    `koanf:"id_length"`
	Template string `koanf:"template"`

	Model        string `koanf:"model"`
	OnnxRuntime  string `koanf:"onnx_runtime"`
	ModelLayout  string `koanf:"model_layout"`
	ModelSoftmax bool   `koanf:"model_softmax"`

	BoxMarginTop    int `koanf:"box_margin_top"`
	BoxMarginBottom int `koanf:"box_margin_bottom"`
	BoxMarginLeft   int `koanf:"box_margin_left"`
	BoxMarginRight  int `koanf:"box_margin_right"`
	LineKernelWidth int `koanf:"line_kernel_width"`

	InkThreshold  float64 `koanf:"ink_threshold"`
	EdgeDistance  float64 `koanf:"edge_distance"`
	VariantKernel int     `koanf:"variant_kernel"`
	DigitSize     int     `koanf:"digit_size"`
	DigitFit      int     `koanf:"digit_fit"`

	// MaxMatchScore and MinBoxInk reject doubtful template
	// matches; zero disables them.
	MaxMatchScore float64 `koanf:"max_match_score"`
	MinBoxInk     float64 `koanf:"min_box_ink"`

	Workers int `koanf:"workers"`

	OcrEngine string `koanf:"ocr_engine"`
	Training  string `koanf:"training"`
	Tesseract string `koanf:"tesseract"`

	DbscanEps        float64 `koanf:"dbscan_eps"`
	DbscanMinSamples int     `koanf:"dbscan_min_samples"`
	MinDF            float64 `koanf:"min_df"`
	MaxDF            float64 `koanf:"max_df"`

	DPI      int    `koanf:"dpi"`
	Pdftoppm string `koanf:"pdftoppm"`

	Storage     string `koanf:"storage"`
	Region      string `koanf:"region"`
	Bucket      string `koanf:"bucket"`
	TempDir     string `koanf:"tempdir"`
	MetricsFile string `koanf:"metrics_file"`
}

// New creates a Config with the default settings
func New() *Config {
	return &Config{
		IDLength:         8,
		ModelLayout:      string(classify.NCHW),
		LineKernelWidth:  40,
		InkThreshold:     128,
		EdgeDistance:     3,
		VariantKernel:    2,
		DigitSize:        28,
		DigitFit:         20,
		Workers:          runtime.NumCPU(),
		OcrEngine:        "tesseract",
		Training:         "eng",
		Tesseract:        "tesseract",
		DbscanEps:        0.5,
		DbscanMinSamples: 2,
		MinDF:            0.1,
		MaxDF:            0.8,
		DPI:              150,
		Pdftoppm:         "pdftoppm",
		Storage:          "local",
		Region:           "eu-west-2",
		TempDir:          os.TempDir(),
	}
}

func invalid(format string, v ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, v...))
}

// Validate checks that settings are usable
func (c *Config) Validate() error {
	switch {
	case c.IDLength < 1:
		return invalid("id_length must be positive, not %d", c.IDLength)
	case c.DigitFit < 1 || c.DigitSize < c.DigitFit:
		return invalid("digit_fit (%d) must be positive and no larger than digit_size (%d)", c.DigitFit, c.DigitSize)
	case c.Workers < 1:
		return invalid("workers must be positive, not %d", c.Workers)
	case c.MinDF < 0 || c.MaxDF > 1 || c.MinDF > c.MaxDF:
		return invalid("min_df (%g) and max_df (%g) must be proportions with min_df <= max_df", c.MinDF, c.MaxDF)
	case c.DbscanEps <= 0 || c.DbscanMinSamples < 1:
		return invalid("dbscan_eps (%g) and dbscan_min_samples (%d) must be positive", c.DbscanEps, c.DbscanMinSamples)
	}
	switch classify.Layout(c.ModelLayout) {
	case classify.NCHW, classify.NHWC:
	default:
		return invalid("unknown model_layout %q", c.ModelLayout)
	}
	switch c.OcrEngine {
	case "tesseract", "gosseract":
	default:
		return invalid("unknown ocr_engine %q", c.OcrEngine)
	}
	switch c.Storage {
	case "local":
	case "aws":
		if c.Bucket == "" {
			return invalid("bucket must be set for aws storage")
		}
	default:
		return invalid("unknown storage %q", c.Storage)
	}
	return nil
}

// Geometry returns the ID box layout
func (c *Config) Geometry() digits.Geometry {
	return digits.Geometry{
		Length: c.IDLength,
		Margins: digits.Margins{
			Top:    c.BoxMarginTop,
			Bottom: c.BoxMarginBottom,
			Left:   c.BoxMarginLeft,
			Right:  c.BoxMarginRight,
		},
		LineKernel: c.LineKernelWidth,
	}
}

// Normalizer returns the digit normaliser settings
func (c *Config) Normalizer() digits.Normalizer {
	return digits.Normalizer{
		Threshold:    float32(c.InkThreshold),
		EdgeDistance: c.EdgeDistance,
		Fit:          c.DigitFit,
		Size:         c.DigitSize,
		Kernel:       c.VariantKernel,
	}
}

// LocateOptions returns the template match checks
func (c *Config) LocateOptions() locate.Options {
	return locate.Options{MaxScore: float32(c.MaxMatchScore), MinInk: c.MinBoxInk}
}

// OnnxOptions returns the classifier settings
func (c *Config) OnnxOptions() classify.OnnxOptions {
	return classify.OnnxOptions{
		Model:   c.Model,
		Runtime: c.OnnxRuntime,
		Layout:  classify.Layout(c.ModelLayout),
		Softmax: c.ModelSoftmax,
	}
}

// ClusterParams returns the version clustering settings
func (c *Config) ClusterParams() version.Params {
	return version.Params{
		Eps:        c.DbscanEps,
		MinSamples: c.DbscanMinSamples,
		MinDF:      c.MinDF,
		MaxDF:      c.MaxDF,
	}
}

// RasterizeOptions returns the settings for turning PDF submissions
// into page images
func (c *Config) RasterizeOptions() rasterize.Options {
	return rasterize.Options{Cmd: c.Pdftoppm, DPI: c.DPI}
}

// Engine returns the OCR engine named by ocr_engine
func (c *Config) Engine() ocr.Engine {
	if c.OcrEngine == "gosseract" {
		return ocr.NewGosseract(c.Training)
	}
	return ocr.Tesseract{Cmd: c.Tesseract, Training: c.Training, TempDir: c.TempDir}
}
