// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// getversions downloads the results saved for an assignment
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"rescribe.xyz/examid/internal/config"
	"rescribe.xyz/examid/internal/pipeline"
)

const usage = `Usage: getversions [-v] [-c config.yaml] [-i] assignment

Downloads the version index and representative images saved for an
assignment by cluster into a directory named after it, and prints
the version of each submission.

With -i the identification results are downloaded too.
`

func main() {
	verbose := flag.Bool("v", false, "verbose")
	conf := flag.String("c", "", "config file (overrides $EXAMID_CONFIG)")
	ident := flag.Bool("i", false, "also download identification results")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return
	}
	assignment := flag.Arg(0)

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

	conn, err := pipeline.NewConn(cfg, verboselog)
	if err != nil {
		log.Fatalln(err)
	}
	verboselog.Println("Setting up storage")
	err = conn.MinimalInit()
	if err != nil {
		log.Fatalln("Error setting up storage:", err)
	}

	dir := filepath.Clean(assignment)
	err = os.MkdirAll(filepath.Join(dir, "versions"), 0755)
	if err != nil {
		log.Fatalln("Failed to create directory", dir, err)
	}

	vs, err := pipeline.DownloadVersions(filepath.Join(dir, "versions"), assignment, conn)
	if err != nil {
		log.Fatalln(err)
	}

	var ids []string
	for id := range vs.Assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Printf("%s\t%d\n", id, vs.Assignments[id])
	}

	if *ident {
		err = pipeline.DownloadIdentification(dir, assignment, conn)
		if err != nil {
			log.Fatalln(err)
		}
	}
}
