// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// identify finds the student who wrote each submission of an
// assignment, by reading the handwritten student number in the ID
// box of each page and matching it against a class roster.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"rescribe.xyz/examid/classify"
	"rescribe.xyz/examid/internal/config"
	"rescribe.xyz/examid/internal/pipeline"
	"rescribe.xyz/examid/locate"
)

const usage = `Usage: identify [-v] [-c config.yaml] [-p pages] [-prev identification] assignment roster.csv submissionsdir

Identifies the student who wrote each submission in submissionsdir.
Each submission is either a PDF or a directory of page images. The
roster is a CSV file of student_id,name rows.

The results are saved to storage under the assignment name, as a
tab separated 'identification' file, a graph of confidences and a
review PDF of ID boxes which could not be read.

If -prev is given, it should be the identification file of an
earlier run; any submission which is now matched to a different
student is reported as needing its linkage reset.
`

func main() {
	verbose := flag.Bool("v", false, "verbose")
	conf := flag.String("c", "", "config file (overrides $EXAMID_CONFIG)")
	pages := flag.String("p", "", "pages to search for an ID box, e.g. 1,3-4; all if empty")
	prev := flag.String("prev", "", "identification file from a previous run")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 3 {
		flag.Usage()
		return
	}
	assignment, rosterpath, dir := flag.Arg(0), flag.Arg(1), flag.Arg(2)

	var verboselog *log.Logger
	if *verbose {
		verboselog = log.New(os.Stdout, "", log.LstdFlags)
	} else {
		var n pipeline.NullWriter
		verboselog = log.New(n, "", log.LstdFlags)
	}

	cfg, err := config.Load(*conf)
	if err != nil {
		log.Fatalln("Error loading configuration:", err)
	}

	pagelist, err := pipeline.ParsePages(*pages)
	if err != nil {
		log.Fatalln("Error parsing pages:", err)
	}

	previous := make(map[string]string)
	if *prev != "" {
		previous, err = pipeline.ReadPrevious(*prev)
		if err != nil {
			log.Fatalln(err)
		}
	}

	r, err := pipeline.LoadRoster(rosterpath, cfg.IDLength, verboselog)
	if err != nil {
		log.Fatalln("Error loading roster:", err)
	}

	if cfg.Template == "" {
		log.Fatalln("No template set")
	}
	tpl, err := locate.LoadTemplate(cfg.Template)
	if err != nil {
		log.Fatalln("Error loading template:", err)
	}
	defer tpl.Close()

	if cfg.Model == "" {
		log.Fatalln("No model set")
	}
	classifier, err := classify.NewOnnx(cfg.OnnxOptions())
	if err != nil {
		log.Fatalln("Error loading model:", err)
	}
	defer classifier.Close()

	conn, err := pipeline.NewConn(cfg, verboselog)
	if err != nil {
		log.Fatalln(err)
	}
	verboselog.Println("Setting up storage")
	err = conn.Init()
	if err != nil {
		log.Fatalln("Error setting up storage:", err)
	}

	workdir, err := os.MkdirTemp(cfg.TempDir, "examid-pages")
	if err != nil {
		log.Fatalln("Error creating working directory:", err)
	}
	defer os.RemoveAll(workdir)

	ctx := context.Background()
	subs, err := pipeline.ListSubmissions(ctx, dir, workdir, cfg.RasterizeOptions(), verboselog)
	if err != nil {
		log.Fatalln("Error finding submissions:", err)
	}

	job := pipeline.IdentifyJob{
		Assignment:  assignment,
		Submissions: subs,
		Pages:       pagelist,
		Previous:    previous,
	}
	tools := pipeline.Tools{Roster: r, Template: tpl, Classifier: classifier}
	report, err := pipeline.Identify(ctx, cfg, job, tools, conn, verboselog)
	if errors.Is(err, config.ErrInvalidConfig) {
		log.Fatalln("Configuration error:", err)
	}
	if err != nil {
		log.Fatalln("Error identifying submissions:", err)
	}

	for _, rec := range report.Records {
		if rec.ResetLinkage {
			fmt.Printf("%s: now %s, previously %s; reset its linkage\n", rec.SubmissionID, rec.StudentID, previous[rec.SubmissionID])
		}
	}
	report.Summary.Log(assignment, log.New(os.Stdout, "", 0))

	if cfg.MetricsFile != "" {
		err = report.Summary.WriteMetrics(cfg.MetricsFile, assignment)
		if err != nil {
			log.Fatalln(err)
		}
	}
}
