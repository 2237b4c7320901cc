// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package examid

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const maxticks = 40

// Conf is the identification confidence of one submission
type Conf struct {
	Name   string
	Conf   float64
	Review bool // needs checking by hand whatever its confidence
}

// graphPoints holds the plotted values of a confidence graph
type graphPoints struct {
	x, y        []float64
	annotations []chart.Value2
	min, max    float64 // y range, in powers of 10
}

// plot places each confidence on a log scale, sorted by name.
// Unidentified submissions have a confidence of 0, so are placed
// on a floor below the cutoff. The top of the range is 1, or higher
// if the cutoff or a confidence is above 1, as for models giving raw
// scores.
func plot(confs []Conf, cutoff float64) graphPoints {
	sorted := make([]Conf, len(confs))
	copy(sorted, confs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	p := graphPoints{
		min: math.Floor(math.Log10(cutoff)) - 2,
		max: math.Max(0, math.Ceil(math.Log10(cutoff))),
	}
	for i, c := range sorted {
		x := float64(i + 1)
		y := p.min
		if c.Conf > 0 {
			y = math.Max(math.Log10(c.Conf), p.min)
		}
		p.max = math.Max(p.max, math.Ceil(y))
		p.x = append(p.x, x)
		p.y = append(p.y, y)
		if c.Review || c.Conf < cutoff {
			p.annotations = append(p.annotations, chart.Value2{Label: c.Name, XValue: x, YValue: y})
		}
	}
	return p
}

// createLine creates a horizontal line with a particular y value for
// a graph
func createLine(xvalues []float64, y float64, c drawing.Color) chart.ContinuousSeries {
	var yvalues []float64
	for range xvalues {
		yvalues = append(yvalues, y)
	}
	return chart.ContinuousSeries{
		XValues: xvalues,
		YValues: yvalues,
		Style: chart.Style{
			StrokeColor:     c,
			StrokeDashArray: []float64{5.0, 5.0},
		},
	}
}

// Graph creates a graph of the confidence of each submission's
// identification, on a log scale, against the detection cutoff.
// Submissions below the cutoff or marked for review are labelled so
// they can be found and checked by hand.
func Graph(confs []Conf, cutoff float64, title string, w io.Writer) error {
	if len(confs) < 2 {
		return errors.New("Not enough valid confidences")
	}
	if cutoff <= 0 {
		return errors.New("Cutoff must be positive")
	}

	p := plot(confs, cutoff)

	var ticks []chart.Tick
	tickevery := len(p.x) / maxticks
	if tickevery < 1 {
		tickevery = 1
	}
	for i, x := range p.x {
		if i%tickevery == 0 {
			ticks = append(ticks, chart.Tick{Value: x, Label: fmt.Sprintf("%.0f", x)})
		}
	}

	var yticks []chart.Tick
	for n := p.min; n <= p.max; n++ {
		yticks = append(yticks, chart.Tick{Value: n, Label: fmt.Sprintf("1e%.0f", n)})
	}

	mainSeries := chart.ContinuousSeries{
		Style: chart.Style{
			StrokeColor: chart.ColorBlue,
			FillColor:   chart.ColorAlternateBlue,
		},
		XValues: p.x,
		YValues: p.y,
	}
	cutoffSeries := createLine(p.x, math.Log10(cutoff), chart.ColorRed)

	graph := chart.Chart{
		Title:  title,
		Width:  1920,
		Height: 1080,
		XAxis: chart.XAxis{
			Name: "Submission",
			Range: &chart.ContinuousRange{
				Min: 0.0,
			},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name: "Joint probability",
			Range: &chart.ContinuousRange{
				Min: p.min,
				Max: p.max,
			},
			Ticks: yticks,
		},
		Series: []chart.Series{
			mainSeries,
			cutoffSeries,
		},
	}
	if len(p.annotations) > 0 {
		graph.Series = append(graph.Series, chart.AnnotationSeries{Annotations: p.annotations})
	}
	return graph.Render(chart.PNG, w)
}
