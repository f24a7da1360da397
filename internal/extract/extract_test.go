// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/case-intake/internal/archive"
	"github.com/pdiddy/case-intake/internal/failure"
	"github.com/pdiddy/case-intake/internal/testutil"
)

func entries(t *testing.T, files ...testutil.File) []archive.Entry {
	t.Helper()
	p := testutil.WriteZip(t, t.TempDir(), "case.zip", files...)
	a, err := archive.Open(p)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a.Entries()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestToFolder(t *testing.T) {
	es := entries(t,
		testutil.File{Name: "doc.pdf", Body: "%PDF-1.4 doc"},
		testutil.File{Name: "nested/deeper/scan.pdf", Body: "%PDF-1.4 scan"},
	)
	dest := filepath.Join(t.TempDir(), "cases", "123-abc")

	written, err := ToFolder(es, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf", "scan.pdf"}, written)
	assert.ElementsMatch(t, []string{"doc.pdf", "scan.pdf"}, testutil.ListDir(t, dest))
	assert.Equal(t, "%PDF-1.4 doc", readFile(t, filepath.Join(dest, "doc.pdf")))
	assert.Equal(t, "%PDF-1.4 scan", readFile(t, filepath.Join(dest, "scan.pdf")))
}

func TestToFolderOverwrites(t *testing.T) {
	dest := t.TempDir()
	testutil.WriteFile(t, dest, "doc.pdf", "old content that is longer than the new one")

	written, err := ToFolder(entries(t, testutil.File{Name: "doc.pdf", Body: "new"}), dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf"}, written)
	assert.Equal(t, "new", readFile(t, filepath.Join(dest, "doc.pdf")))
}

func TestToFolderSameBaseNameLastWins(t *testing.T) {
	dest := t.TempDir()
	es := entries(t,
		testutil.File{Name: "a/doc.pdf", Body: "first"},
		testutil.File{Name: "b/doc.pdf", Body: "second"},
	)
	written, err := ToFolder(es, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf"}, written)
	assert.Equal(t, "second", readFile(t, filepath.Join(dest, "doc.pdf")))
}

func TestToFolderEmpty(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "empty")
	written, err := ToFolder(nil, dest)
	require.NoError(t, err)
	assert.Empty(t, written)
	assert.DirExists(t, dest)

	// Idempotent when the folder already exists.
	_, err = ToFolder(nil, dest)
	require.NoError(t, err)
}

func TestToFolderCreateFails(t *testing.T) {
	parent := t.TempDir()
	blocker := testutil.WriteFile(t, parent, "blocker", "a file, not a folder")

	_, err := ToFolder(entries(t, testutil.File{Name: "doc.pdf"}), filepath.Join(blocker, "case"))
	require.Error(t, err)
	assert.Equal(t, failure.Extraction, failure.KindOf(err))
	assert.Contains(t, err.Error(), "Unable to create folder")
}

func TestToFolderPartialWriteIsKept(t *testing.T) {
	dest := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dest, "two.pdf"), 0o755))

	es := entries(t,
		testutil.File{Name: "one.pdf", Body: "1"},
		testutil.File{Name: "two.pdf", Body: "2"},
		testutil.File{Name: "three.pdf", Body: "3"},
	)
	written, err := ToFolder(es, dest)
	require.Error(t, err)
	assert.Equal(t, failure.Extraction, failure.KindOf(err))
	assert.Contains(t, err.Error(), "Unable to extract 'two.pdf'")
	assert.Equal(t, []string{"one.pdf"}, written)
	assert.FileExists(t, filepath.Join(dest, "one.pdf"))
	assert.NoFileExists(t, filepath.Join(dest, "three.pdf"))
}

func TestToFolderRejectsDotDot(t *testing.T) {
	dest := t.TempDir()
	_, err := ToFolder(entries(t, testutil.File{Name: "evil/..", Body: "x"}), dest)
	require.Error(t, err)
	assert.Equal(t, failure.Extraction, failure.KindOf(err))
	assert.Contains(t, err.Error(), "invalid file name")
}

func TestStaged(t *testing.T) {
	base := t.TempDir()
	es := entries(t, testutil.File{Name: "doc.pdf", Body: "pdf"})

	written, err := Staged(es, base, "123-abc")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.pdf"}, written)
	assert.Equal(t, []string{"123-abc"}, testutil.ListDir(t, base))
	assert.Equal(t, "pdf", readFile(t, filepath.Join(base, "123-abc", "doc.pdf")))
}

func TestStagedFailureLeavesNothing(t *testing.T) {
	base := t.TempDir()
	es := entries(t,
		testutil.File{Name: "doc.pdf", Body: "pdf"},
		testutil.File{Name: "x/..", Body: "bad"},
	)

	_, err := Staged(es, base, "123-abc")
	require.Error(t, err)
	assert.Equal(t, failure.Extraction, failure.KindOf(err))
	assert.Empty(t, testutil.ListDir(t, base))
}

func TestIsStaging(t *testing.T) {
	assert.True(t, IsStaging(".staging-123-abc"))
	assert.False(t, IsStaging("123-abc"))
}
