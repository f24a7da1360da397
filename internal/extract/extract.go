// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract copies selected archive entries into a case folder.
//
// Output is flattened: only each entry's base name is used, so entries
// with the same base name overwrite each other and the last one wins.
// Extraction is not transactional unless Staged is used; a failure
// part-way leaves already written files in place.
package extract

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pdiddy/case-intake/internal/archive"
	"github.com/pdiddy/case-intake/internal/failure"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	stagingPrefix = ".staging-"
)

var errInvalidName = errors.New("invalid file name")

// ToFolder creates dest (and missing parents) and writes each entry to
// dest/<base name>, replacing existing files. It returns the distinct
// file names written, in first-write order. The first I/O error aborts
// the run as an Extraction failure.
func ToFolder(entries []archive.Entry, dest string) ([]string, error) {
	if err := os.MkdirAll(dest, dirPerm); err != nil {
		return nil, failure.Wrap(err, failure.Extraction, "Unable to create folder '%s': %v", dest, err)
	}

	var written []string
	seen := make(map[string]bool)
	for _, e := range entries {
		name := e.BaseName()
		if err := checkName(name); err != nil {
			return written, failure.Wrap(err, failure.Extraction, "Unable to extract '%s': %v", e.Name(), err)
		}
		if err := writeEntry(e, filepath.Join(dest, name)); err != nil {
			return written, failure.Wrap(err, failure.Extraction, "Unable to extract '%s': %v", e.Name(), err)
		}
		if !seen[name] {
			seen[name] = true
			written = append(written, name)
		}
	}
	return written, nil
}

// Staged extracts into a hidden sibling of base/folder and renames it to
// base/folder only when every entry was written. On failure the staging
// directory is removed and base/folder is never created.
func Staged(entries []archive.Entry, base, folder string) ([]string, error) {
	if err := os.MkdirAll(base, dirPerm); err != nil {
		return nil, failure.Wrap(err, failure.Extraction, "Unable to create folder '%s': %v", base, err)
	}
	stage := filepath.Join(base, stagingPrefix+folder)
	final := filepath.Join(base, folder)

	written, err := ToFolder(entries, stage)
	if err != nil {
		os.RemoveAll(stage)
		return nil, err
	}
	if err := os.Rename(stage, final); err != nil {
		os.RemoveAll(stage)
		return nil, failure.Wrap(err, failure.Extraction, "Unable to create folder '%s': %v", final, err)
	}
	return written, nil
}

// IsStaging reports whether name is a staging directory left by Staged.
func IsStaging(name string) bool {
	return strings.HasPrefix(name, stagingPrefix)
}

func writeEntry(e archive.Entry, path string) error {
	src, err := e.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, filePerm)
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(dst, src)
	closeErr := dst.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

func checkName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return errInvalidName
	case strings.ContainsAny(name, "/\\\x00"):
		return errInvalidName
	}
	return nil
}
