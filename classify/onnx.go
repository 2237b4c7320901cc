// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package classify

import (
	"errors"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"rescribe.xyz/examid/digits"
)

// Layout is the order of dimensions the model expects its input in
type Layout string

const (
	NCHW Layout = "nchw"
	NHWC Layout = "nhwc"
)

var (
	initOnce sync.Once
	initErr  error
)

func initRuntime(path string) error {
	initOnce.Do(func() {
		if path != "" {
			ort.SetSharedLibraryPath(path)
		}
		initErr = ort.InitializeEnvironment()
	})
	return initErr
}

// OnnxOptions configures an Onnx classifier
type OnnxOptions struct {
	Model   string // path to the .onnx model file
	Runtime string // path to the onnxruntime shared library
	Layout  Layout
	Softmax bool // apply softmax to the model output
	Threads int
}

// Onnx is a Classifier backed by a model run with ONNX Runtime.
// The model must take a batch of single channel digit images and
// output ten scores per digit.
type Onnx struct {
	session *ort.DynamicAdvancedSession
	options *ort.SessionOptions
	layout  Layout
	softmax bool
}

// NewOnnx loads a model and prepares a session to run it
func NewOnnx(o OnnxOptions) (*Onnx, error) {
	if o.Model == "" {
		return nil, errors.New("No model path set")
	}
	switch o.Layout {
	case "":
		o.Layout = NCHW
	case NCHW, NHWC:
	default:
		return nil, fmt.Errorf("Unknown model layout %s", o.Layout)
	}

	err := initRuntime(o.Runtime)
	if err != nil {
		return nil, fmt.Errorf("Error initialising onnx runtime: %v", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(o.Model)
	if err != nil {
		return nil, fmt.Errorf("Error reading model info from %s: %v", o.Model, err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("Model %s has no inputs or outputs", o.Model)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("Error creating session options: %v", err)
	}
	if o.Threads > 0 {
		_ = options.SetIntraOpNumThreads(o.Threads)
	}

	session, err := ort.NewDynamicAdvancedSession(o.Model, []string{inputs[0].Name}, []string{outputs[0].Name}, options)
	if err != nil {
		options.Destroy()
		return nil, fmt.Errorf("Error creating session for %s: %v", o.Model, err)
	}

	return &Onnx{session: session, options: options, layout: o.Layout, softmax: o.Softmax}, nil
}

// Classify runs the model over a batch of digits
func (c *Onnx) Classify(batch []digits.Digit) ([]Probabilities, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	size := batch[0].Size
	data := make([]float32, 0, len(batch)*size*size)
	for i, d := range batch {
		if d.Size != size || len(d.Pix) != size*size {
			return nil, fmt.Errorf("Digit %d has size %d, expected %d", i, d.Size, size)
		}
		data = append(data, d.Pix...)
	}

	// With a single channel both layouts share a memory order,
	// only the declared shape differs.
	n, s := int64(len(batch)), int64(size)
	shape := ort.NewShape(n, 1, s, s)
	if c.layout == NHWC {
		shape = ort.NewShape(n, s, s, 1)
	}

	input, err := ort.NewTensor(shape, data)
	if err != nil {
		return nil, fmt.Errorf("Error creating input tensor: %v", err)
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	err = c.session.Run([]ort.Value{input}, outputs)
	if err != nil {
		return nil, fmt.Errorf("Error running model: %v", err)
	}
	defer outputs[0].Destroy()

	output, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("Model output is not a float32 tensor")
	}

	return c.decode(output.GetData(), len(batch))
}

func (c *Onnx) decode(scores []float32, n int) ([]Probabilities, error) {
	if len(scores) != n*10 {
		return nil, fmt.Errorf("Model returned %d scores for %d digits, expected %d", len(scores), n, n*10)
	}
	probs := make([]Probabilities, n)
	for i := range probs {
		row := scores[i*10 : (i+1)*10]
		if c.softmax {
			probs[i] = Softmax(row)
			continue
		}
		for j, v := range row {
			probs[i][j] = float64(v)
		}
	}
	return probs, nil
}

// Close frees the resources used by the session
func (c *Onnx) Close() error {
	var err error
	if c.session != nil {
		err = c.session.Destroy()
	}
	if c.options != nil {
		c.options.Destroy()
	}
	return err
}
