// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"rescribe.xyz/examid/classify"
)

func TestDefaults(t *testing.T) {
	t.Setenv("EXAMID_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IDLength != 8 || cfg.DigitSize != 28 || cfg.DigitFit != 20 {
		t.Errorf("Unexpected digit defaults: %+v", cfg)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("Workers = %d, expected %d", cfg.Workers, runtime.NumCPU())
	}
	p := cfg.ClusterParams()
	if p.Eps != 0.5 || p.MinSamples != 2 || p.MinDF != 0.1 || p.MaxDF != 0.8 {
		t.Errorf("Unexpected cluster defaults: %+v", p)
	}
	if cfg.OnnxOptions().Layout != classify.NCHW {
		t.Errorf("Unexpected layout %s", cfg.OnnxOptions().Layout)
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "examid.yaml")
	yaml := "id_length: 7\nbox_margin_left: 12\nline_kernel_width: 30\ndbscan_eps: 0.4\n"
	if err := os.WriteFile(p, []byte(yaml), 0644); err != nil {
		t.Fatalf("Could not write config: %v", err)
	}
	t.Setenv("EXAMID_LINE_KERNEL_WIDTH", "50")
	t.Setenv("EXAMID_MODEL_SOFTMAX", "true")

	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.IDLength != 7 {
		t.Errorf("IDLength = %d, expected 7 from file", cfg.IDLength)
	}
	g := cfg.Geometry()
	if g.Length != 7 || g.Margins.Left != 12 {
		t.Errorf("Unexpected geometry %+v", g)
	}
	if g.LineKernel != 50 {
		t.Errorf("LineKernel = %d, expected environment to override file", g.LineKernel)
	}
	if !cfg.ModelSoftmax {
		t.Errorf("ModelSoftmax not set from environment")
	}
	if cfg.DbscanEps != 0.4 {
		t.Errorf("DbscanEps = %g, expected 0.4", cfg.DbscanEps)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		change func(c *Config)
	}{
		{"idlength", func(c *Config) { c.IDLength = 0 }},
		{"digitfit", func(c *Config) { c.DigitFit = 40 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"df", func(c *Config) { c.MinDF, c.MaxDF = 0.9, 0.1 }},
		{"eps", func(c *Config) { c.DbscanEps = 0 }},
		{"layout", func(c *Config) { c.ModelLayout = "chw" }},
		{"ocr", func(c *Config) { c.OcrEngine = "paper" }},
		{"storage", func(c *Config) { c.Storage = "floppy" }},
		{"bucket", func(c *Config) { c.Storage = "aws" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := New()
			c.change(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if err := New().Validate(); err != nil {
		t.Fatalf("Defaults should be valid: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
}
