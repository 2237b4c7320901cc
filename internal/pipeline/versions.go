// Copyright 2024 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// VersionSet is the persisted version state of an assignment.
// Outliers have no entry in Assignments.
type VersionSet struct {
	RunID           string
	Assignments     map[string]int // submission id -> version
	Representatives map[int]string // version -> storage key of its image
}

func versionsPrefix(assignment string) string {
	return key(assignment, "versions")
}

func versionsIndex(assignment string) string {
	return key(assignment, "versions", "index")
}

// WriteVersions writes the version state as tab separated lines
func WriteVersions(w io.Writer, vs VersionSet) error {
	_, err := fmt.Fprintf(w, "run\t%s\n", vs.RunID)
	if err != nil {
		return err
	}

	var versions []int
	for v := range vs.Representatives {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	for _, v := range versions {
		_, err = fmt.Fprintf(w, "version\t%d\t%s\n", v, vs.Representatives[v])
		if err != nil {
			return err
		}
	}

	var ids []string
	for id := range vs.Assignments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		_, err = fmt.Fprintf(w, "submission\t%s\t%d\n", id, vs.Assignments[id])
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseVersions reads version state written by WriteVersions
func ParseVersions(r io.Reader) (VersionSet, error) {
	vs := VersionSet{Assignments: make(map[string]int), Representatives: make(map[int]string)}
	s := bufio.NewScanner(r)
	n := 0
	for s.Scan() {
		n++
		if strings.TrimSpace(s.Text()) == "" {
			continue
		}
		f := strings.Split(s.Text(), "\t")
		switch {
		case f[0] == "run" && len(f) == 2:
			vs.RunID = f[1]
		case f[0] == "version" && len(f) == 3:
			v, err := strconv.Atoi(f[1])
			if err != nil {
				return vs, fmt.Errorf("Error parsing version on line %d: %v", n, err)
			}
			vs.Representatives[v] = f[2]
		case f[0] == "submission" && len(f) == 3:
			v, err := strconv.Atoi(f[2])
			if err != nil {
				return vs, fmt.Errorf("Error parsing version on line %d: %v", n, err)
			}
			vs.Assignments[f[1]] = v
		default:
			return vs, fmt.Errorf("Error parsing line %d: %q", n, s.Text())
		}
	}
	return vs, s.Err()
}

// ReplaceVersions swaps the version state of an assignment for a new
// one. The new representative images (local paths by version) and
// any extra files are uploaded under a prefix unique to the run,
// then the index is replaced, and finally every other object under
// the assignment's versions prefix is deleted, so nothing from a
// previous run survives. The local files are removed once uploaded.
func ReplaceVersions(ctx context.Context, conn Storer, assignment string, vs VersionSet, images map[int]string, extra []string, dir string, logger *log.Logger) (VersionSet, error) {
	if vs.RunID == "" {
		return vs, fmt.Errorf("No run id set")
	}
	prefix := key(versionsPrefix(assignment), vs.RunID)

	keep := map[string]bool{versionsIndex(assignment): true}
	vs.Representatives = make(map[int]string)
	var paths []string
	for v, p := range images {
		vs.Representatives[v] = key(prefix, filepath.Base(p))
		paths = append(paths, p)
	}
	sort.Strings(paths)
	paths = append(paths, extra...)
	for _, p := range paths {
		keep[key(prefix, filepath.Base(p))] = true
	}

	err := uploadAll(ctx, paths, conn, prefix, logger)
	if err != nil {
		return vs, fmt.Errorf("Error uploading versions: %v", err)
	}

	fn := filepath.Join(dir, "index")
	f, err := os.Create(fn)
	if err != nil {
		return vs, fmt.Errorf("Error creating %s: %v", fn, err)
	}
	err = WriteVersions(f, vs)
	f.Close()
	if err != nil {
		return vs, fmt.Errorf("Error writing %s: %v", fn, err)
	}
	err = uploadAll(ctx, []string{fn}, conn, versionsPrefix(assignment), logger)
	if err != nil {
		return vs, fmt.Errorf("Error uploading versions index: %v", err)
	}

	objs, err := conn.ListObjects(conn.WIPStorageId(), versionsPrefix(assignment)+"/")
	if err != nil {
		return vs, fmt.Errorf("Error listing old versions: %v", err)
	}
	var stale []string
	for _, o := range objs {
		if !keep[o] {
			stale = append(stale, o)
		}
	}
	if len(stale) > 0 {
		logger.Printf("Deleting %d objects from previous version runs\n", len(stale))
		err = conn.DeleteObjects(conn.WIPStorageId(), stale)
		if err != nil {
			return vs, fmt.Errorf("Error deleting old versions: %v", err)
		}
	}

	return vs, nil
}

// ReadVersions downloads and parses the version index of an
// assignment into dir.
func ReadVersions(conn Downloader, assignment string, dir string) (VersionSet, error) {
	fn := filepath.Join(dir, "index")
	err := conn.Download(conn.WIPStorageId(), versionsIndex(assignment), fn)
	if err != nil {
		return VersionSet{}, fmt.Errorf("Failed to download versions index: %v", err)
	}
	f, err := os.Open(fn)
	if err != nil {
		return VersionSet{}, fmt.Errorf("Failed to open versions index: %v", err)
	}
	defer f.Close()
	return ParseVersions(f)
}
