// Copyright 2020 Nick White.
// Use of this source code is governed by the GPLv3
// license that can be found in the LICENSE file.

// pipeline is a package used by the identify and cluster commands,
// which handles the core functionality, using channels heavily to
// coordinate jobs. Note that it is considered an "internal" package,
// not intended for external use, and no guarantee is made of the
// stability of any interfaces provided.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"

	"rescribe.xyz/examid"
	"rescribe.xyz/examid/internal/config"
)

type Lister interface {
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	WIPStorageId() string
}

type Downloader interface {
	Download(bucket string, key string, fn string) error
	Log(v ...interface{})
	WIPStorageId() string
}

type DownloadLister interface {
	Download(bucket string, key string, fn string) error
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	WIPStorageId() string
}

type Uploader interface {
	Log(v ...interface{})
	Upload(bucket string, key string, path string) error
	WIPStorageId() string
}

// Storer can do everything needed to replace the results kept for
// an assignment.
type Storer interface {
	DeleteObjects(bucket string, keys []string) error
	Download(bucket string, key string, fn string) error
	ListObjects(bucket string, prefix string) ([]string, error)
	Log(v ...interface{})
	Upload(bucket string, key string, path string) error
	WIPStorageId() string
}

// Conn is a storage connection which can be initialised
type Conn interface {
	Storer
	GetLogger() *log.Logger
	Init() error
	MinimalInit() error
}

// null writer to enable non-verbose logging to be discarded
type NullWriter bool

func (w NullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// NewConn returns the storage connection named in the config,
// which has not been initialised yet.
func NewConn(cfg *config.Config, logger *log.Logger) (Conn, error) {
	switch cfg.Storage {
	case "local":
		return &examid.LocalConn{Logger: logger, TempDir: filepath.Join(cfg.TempDir, "examid")}, nil
	case "aws":
		return &examid.AwsConn{Region: cfg.Region, Bucket: cfg.Bucket, Logger: logger}, nil
	}
	return nil, fmt.Errorf("%w: unknown storage %q", config.ErrInvalidConfig, cfg.Storage)
}

// key joins parts of a storage key. Keys always use forward
// slashes, whatever the platform.
func key(parts ...string) string {
	return path.Join(parts...)
}

// up reads file names from a channel and uploads them with
// the prefix/ prefix, removing the local copy of each file
// once it has been successfully uploaded. The done channel is
// then written to to signal completion. If an error occurs it
// is sent to the errc channel and the function returns early.
func up(ctx context.Context, c chan string, done chan bool, conn Uploader, prefix string, errc chan error, logger *log.Logger) {
	for p := range c {
		select {
		case <-ctx.Done():
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- ctx.Err()
			return
		default:
		}
		k := key(prefix, filepath.Base(p))
		logger.Println("Uploading", k)
		err := conn.Upload(conn.WIPStorageId(), k, p)
		if err != nil {
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			return
		}
		err = os.Remove(p)
		if err != nil {
			for range c {
			} // consume the rest of the receiving channel so it isn't blocked
			errc <- err
			return
		}
	}

	done <- true
}

// uploadAll uploads a set of files with up, returning the first
// error encountered.
func uploadAll(ctx context.Context, paths []string, conn Uploader, prefix string, logger *log.Logger) error {
	c := make(chan string)
	done := make(chan bool)
	errc := make(chan error, 1)

	go up(ctx, c, done, conn, prefix, errc, logger)

	for _, p := range paths {
		select {
		case c <- p:
		case err := <-errc:
			return err
		}
	}
	close(c)

	select {
	case <-done:
		return nil
	case err := <-errc:
		return err
	}
}
