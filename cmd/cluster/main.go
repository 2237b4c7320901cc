// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// cluster groups the submissions of an assignment into versions of
// the question paper, by OCRing part of the chosen pages and
// clustering the texts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"rescribe.xyz/examid/internal/config"
	"rescribe.xyz/examid/internal/pipeline"
	"rescribe.xyz/examid/version"
)

const usage = `Usage: cluster [-v] [-c config.yaml] [-p pages] [-crop x0,y0,x1,y1] [-ref page] assignment submissionsdir

Groups the submissions in submissionsdir into versions by the text
of their pages. Each submission is either a PDF or a directory of
page images.

The version of each submission and an image of the reference page
of one submission per version are saved to storage under
assignment/versions, replacing the results of any earlier run.
`

func main() {
	verbose := flag.Bool("v", false, "verbose")
	conf := flag.String("c", "", "config file (overrides $EXAMID_CONFIG)")
	pages := flag.String("p", "1", "pages whose text is compared, e.g. 1,3-4; all if empty")
	crop := flag.String("crop", "", "part of each page to OCR, as x0,y0,x1,y1; the whole page if empty")
	ref := flag.Int("ref", 1, "page saved as the representative of each version")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		return
	}
	assignment, dir := flag.Arg(0), flag.Arg(1)

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
	r, err := pipeline.ParseRect(*crop)
	if err != nil {
		log.Fatalln("Error parsing crop:", err)
	}
	if *ref < 1 {
		log.Fatalln("Reference page must be 1 or more")
	}

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

	job := pipeline.ClusterJob{
		Assignment:  assignment,
		Submissions: subs,
		Pages:       pagelist,
		Crop:        r,
		RefPage:     *ref - 1,
	}
	report, err := pipeline.Cluster(ctx, cfg, job, cfg.Engine(), conn, verboselog)
	if err != nil {
		log.Fatalln("Error clustering submissions:", err)
	}

	for i, v := range report.State.Versions {
		if v == version.Outlier {
			fmt.Printf("%s\toutlier\n", subs[i].ID)
			continue
		}
		fmt.Printf("%s\t%d\n", subs[i].ID, v)
	}
	report.Summary.Log(assignment, log.New(os.Stdout, "", 0))

	if cfg.MetricsFile != "" {
		err = report.Summary.WriteMetrics(cfg.MetricsFile, assignment)
		if err != nil {
			log.Fatalln(err)
		}
	}
}
