// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive opens case ZIP files, finds the party.xml metadata entry,
// and selects the entries eligible for extraction.
package archive

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pdiddy/case-intake/internal/failure"
	"github.com/pdiddy/case-intake/pkg/types"
)

// Entry is one file inside an archive.
type Entry struct {
	f *zip.File
}

// Name returns the full path-like name stored in the archive.
func (e Entry) Name() string { return e.f.Name }

// BaseName returns the final path component. Both '/' and '\' are
// treated as separators.
func (e Entry) BaseName() string { return baseName(e.f.Name) }

// Ext returns the extension of BaseName including the leading dot, or ""
// when there is none.
func (e Entry) Ext() string { return path.Ext(e.BaseName()) }

// Open returns a reader for the entry's content. The caller closes it.
func (e Entry) Open() (io.ReadCloser, error) { return e.f.Open() }

// IsDir reports whether the entry is a directory marker.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.f.Name, "/") || strings.HasSuffix(e.f.Name, `\`) || e.f.FileInfo().IsDir()
}

// Archive is an open, read-only ZIP file.
type Archive struct {
	rc      *zip.ReadCloser
	entries []Entry
}

// Open opens the ZIP file at p. A missing file is reported as
// ArchiveNotFound with the operator message for it.
func Open(p string) (*Archive, error) {
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		if err == nil {
			err = os.ErrNotExist
		}
		return nil, failure.Wrap(err, failure.ArchiveNotFound, "Unable to find ZIP file '%s'.", p)
	}

	rc, err := zip.OpenReader(p)
	if errors.Is(err, zip.ErrInsecurePath) && rc != nil {
		// Names are flattened to their base component before anything is
		// written, so non-local names are harmless here.
		err = nil
	}
	if err != nil {
		return nil, failure.Wrap(err, failure.Unexpected, "Unable to open ZIP file '%s': %v", p, err)
	}

	a := &Archive{rc: rc}
	for _, f := range rc.File {
		a.entries = append(a.entries, Entry{f: f})
	}
	return a, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	return a.rc.Close()
}

// Entries returns every entry in archive order.
func (a *Archive) Entries() []Entry { return a.entries }

// LocateMetadata finds the single entry whose base name equals name,
// ignoring case. Directory entries never match. With MetadataFirst the
// first match wins; otherwise more than one match is MetadataAmbiguous.
func (a *Archive) LocateMetadata(name string, policy types.MetadataPolicy) (Entry, error) {
	var matches []Entry
	for _, e := range a.entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(e.BaseName(), name) {
			matches = append(matches, e)
		}
	}

	switch {
	case len(matches) == 0:
		return Entry{}, failure.New(failure.MetadataMissing, "Unable to find '%s' in ZIP file.", name)
	case len(matches) > 1 && policy != types.MetadataFirst:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name()
		}
		return Entry{}, failure.New(failure.MetadataAmbiguous,
			"Found %d '%s' entries in ZIP file (%s).", len(matches), name, strings.Join(names, ", "))
	}
	return matches[0], nil
}

// SelectExtractable returns the non-directory entries whose extension is
// in wl, in archive order.
func (a *Archive) SelectExtractable(wl Whitelist) []Entry {
	var out []Entry
	for _, e := range a.entries {
		if e.IsDir() {
			continue
		}
		if wl.Allows(e.Ext()) {
			out = append(out, e)
		}
	}
	return out
}

func baseName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimRight(name, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
