// Copyright 2019 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// DownloadIdentification downloads the identification results of
// an assignment into dir, along with its graph and review PDF if
// they exist.
func DownloadIdentification(dir string, assignment string, conn Downloader) error {
	for _, a := range []string{IdentificationFile, "graph.png", "review.pdf"} {
		k := key(assignment, a)
		fn := filepath.Join(dir, a)
		conn.Log("Downloading", k)
		err := conn.Download(conn.WIPStorageId(), k, fn)
		if err == nil {
			continue
		}
		_ = os.Remove(fn)
		// the graph and review pdf are not made for every run
		if a == IdentificationFile {
			return fmt.Errorf("Failed to download %s: %v", k, err)
		}
	}
	return nil
}

// DownloadVersions downloads the version index of an assignment and
// every file of the run it names into dir.
func DownloadVersions(dir string, assignment string, conn DownloadLister) (VersionSet, error) {
	vs, err := ReadVersions(conn, assignment, dir)
	if err != nil {
		return vs, err
	}

	objs, err := conn.ListObjects(conn.WIPStorageId(), key(versionsPrefix(assignment), vs.RunID)+"/")
	if err != nil {
		return vs, fmt.Errorf("Failed to get list of version files for %s: %v", assignment, err)
	}
	for _, o := range objs {
		fn := filepath.Join(dir, path.Base(o))
		conn.Log("Downloading", o)
		err = conn.Download(conn.WIPStorageId(), o, fn)
		if err != nil {
			return vs, fmt.Errorf("Failed to download file %s: %v", o, err)
		}
	}
	return vs, nil
}
