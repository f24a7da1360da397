// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/case-intake/internal/notify"
	"github.com/pdiddy/case-intake/internal/testutil"
	"github.com/pdiddy/case-intake/pkg/types"
)

// --- test helpers ---

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, m notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

type fakeRecorder struct {
	records []types.Record
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, rec types.Record) (int64, error) {
	f.records = append(f.records, rec)
	return int64(len(f.records)), f.err
}

type fakeObserver struct {
	outcomes []types.Outcome
}

func (f *fakeObserver) Observe(o types.Outcome, _ time.Duration) {
	f.outcomes = append(f.outcomes, o)
}

type env struct {
	dir      string
	cases    string
	cfg      types.IntakeConfig
	notifier *fakeNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	return &env{
		dir:   dir,
		cases: filepath.Join(dir, "cases"),
		cfg: types.IntakeConfig{
			CaseFilesFolder:     filepath.Join(dir, "cases"),
			CaseFileTypes:       ".pdf",
			PartySchemaFilePath: testutil.WriteFile(t, dir, "party.xsd", testutil.PartyXSD),
			AdminEmail:          "admin@example.com",
		},
		notifier: &fakeNotifier{},
	}
}

func (e *env) processor(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := NewProcessor(e.cfg, e.notifier, zap.NewNop().Sugar(), opts...)
	require.NoError(t, err)
	return p
}

func (e *env) zip(t *testing.T, files ...testutil.File) string {
	t.Helper()
	return testutil.WriteZip(t, e.dir, "case.zip", files...)
}

func validCase() []testutil.File {
	return []testutil.File{
		{Name: "party.xml", Body: testutil.PartyXML("12345")},
		{Name: "doc.pdf", Body: "%PDF-1.4 case document"},
		{Name: "notes.txt", Body: "internal notes"},
	}
}

func assertOutcomeInvariant(t *testing.T, o types.Outcome) {
	t.Helper()
	if o.Success {
		assert.NotEmpty(t, o.DestinationFolder)
		assert.Empty(t, o.ErrorMessage)
	} else {
		assert.Empty(t, o.DestinationFolder)
		assert.NotEmpty(t, o.ErrorMessage)
	}
}

// --- constructor tests ---

func TestNewProcessorValidatesConfig(t *testing.T) {
	e := newEnv(t)
	e.cfg.AdminEmail = ""
	_, err := NewProcessor(e.cfg, e.notifier, nil)
	assert.Error(t, err)

	e = newEnv(t)
	_, err = NewProcessor(e.cfg, nil, nil)
	assert.Error(t, err)
}

func TestStaleStaging(t *testing.T) {
	e := newEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	p, err := NewProcessor(e.cfg, e.notifier, zap.New(core).Sugar())
	require.NoError(t, err)

	assert.Empty(t, p.StaleStaging(), "missing case files folder")
	assert.Zero(t, logs.Len())

	require.NoError(t, os.MkdirAll(filepath.Join(e.cases, ".staging-12345-abc"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(e.cases, "12345-def"), 0o755))
	testutil.WriteFile(t, e.cases, ".staging-note", "not a folder")

	stale := p.StaleStaging()
	assert.Equal(t, []string{filepath.Join(e.cases, ".staging-12345-abc")}, stale)
	warnings := logs.FilterMessage("Found staging folder left by an interrupted extraction").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, stale[0], warnings[0].ContextMap()["path"])

	// Completed case folders are left alone.
	assert.DirExists(t, filepath.Join(e.cases, "12345-def"))
}

// --- scenario tests ---

func TestProcessArchiveNotFound(t *testing.T) {
	e := newEnv(t)
	missing := filepath.Join(e.dir, "nope.zip")

	out := e.processor(t).Process(missing)

	assertOutcomeInvariant(t, out)
	assert.False(t, out.Success)
	assert.Equal(t, "Unable to find ZIP file '"+missing+"'.", out.ErrorMessage)
	assert.Equal(t, "archive_not_found", out.Kind)
	assert.Empty(t, out.DestinationFolder)
	assert.Empty(t, testutil.ListDir(t, e.cases))
}

func TestProcessMetadataMissing(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t, testutil.File{Name: "doc.pdf", Body: "pdf"})

	out := e.processor(t).Process(zipPath)

	assertOutcomeInvariant(t, out)
	assert.Contains(t, out.ErrorMessage, "Unable to find 'party.xml'")
	assert.Equal(t, "Unable to find 'party.xml' in ZIP file.", out.ErrorMessage)
	assert.Empty(t, testutil.ListDir(t, e.cases))
}

func TestProcessValidationFailure(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t,
		testutil.File{Name: "party.xml", Body: testutil.PartyXMLWithoutApplicationNo},
		testutil.File{Name: "doc.pdf", Body: "pdf"},
	)

	out := e.processor(t).Process(zipPath)

	assertOutcomeInvariant(t, out)
	assert.Equal(t, "validation", out.Kind)
	assert.Contains(t, out.ErrorMessage, "applicationno")
	assert.Empty(t, testutil.ListDir(t, e.cases))
}

func TestProcessSuccess(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t, validCase()...)

	out := e.processor(t).Process(zipPath)

	assertOutcomeInvariant(t, out)
	require.True(t, out.Success, out.ErrorMessage)
	assert.True(t, strings.HasPrefix(out.DestinationFolder, "12345-"))
	assert.Equal(t, filepath.Base(out.DestinationFolder), out.DestinationFolder)
	assert.Equal(t, []string{"doc.pdf"}, out.Extracted)

	dest := filepath.Join(e.cases, out.DestinationFolder)
	assert.Equal(t, []string{"doc.pdf"}, testutil.ListDir(t, dest))
	data, err := os.ReadFile(filepath.Join(dest, "doc.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 case document", string(data))
}

// --- property tests ---

func TestProcessTwiceMakesDistinctFolders(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t, validCase()...)
	p := e.processor(t)

	first := p.Process(zipPath)
	second := p.Process(zipPath)

	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.NotEqual(t, first.DestinationFolder, second.DestinationFolder)
	assert.Len(t, testutil.ListDir(t, e.cases), 2)
}

func TestProcessExtractsExactlyWhitelisted(t *testing.T) {
	e := newEnv(t)
	e.cfg.CaseFileTypes = ".pdf, .docx"
	files := []testutil.File{
		{Name: "party.xml", Body: testutil.PartyXML("777")},
		{Name: "a/letter.docx", Body: "docx bytes"},
		{Name: "b/scan.pdf", Body: "pdf bytes"},
		{Name: "photo.jpg", Body: "jpg bytes"},
		{Name: "README", Body: "no extension"},
		{Name: "UPPER.PDF", Body: "upper"},
	}
	zipPath := e.zip(t, files...)

	out := e.processor(t).Process(zipPath)
	require.True(t, out.Success, out.ErrorMessage)

	dest := filepath.Join(e.cases, out.DestinationFolder)
	assert.ElementsMatch(t, []string{"letter.docx", "scan.pdf"}, testutil.ListDir(t, dest))
	for _, f := range files[1:3] {
		data, err := os.ReadFile(filepath.Join(dest, filepath.Base(f.Name)))
		require.NoError(t, err)
		assert.Equal(t, f.Body, string(data))
	}
}

func TestProcessExtensionFold(t *testing.T) {
	e := newEnv(t)
	e.cfg.ExtensionMatch = types.MatchFold
	zipPath := e.zip(t,
		testutil.File{Name: "party.xml", Body: testutil.PartyXML("1")},
		testutil.File{Name: "SCAN.PDF", Body: "pdf"},
	)

	out := e.processor(t).Process(zipPath)
	require.True(t, out.Success, out.ErrorMessage)
	assert.Equal(t, []string{"SCAN.PDF"}, out.Extracted)
}

func TestProcessMetadataCaseInsensitiveInSubfolder(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t,
		testutil.File{Name: "case/PARTY.XML", Body: testutil.PartyXML("42")},
		testutil.File{Name: "doc.pdf", Body: "pdf"},
	)

	out := e.processor(t).Process(zipPath)
	require.True(t, out.Success, out.ErrorMessage)
	assert.True(t, strings.HasPrefix(out.DestinationFolder, "42-"))
}

func TestProcessAmbiguousMetadata(t *testing.T) {
	files := []testutil.File{
		{Name: "party.xml", Body: testutil.PartyXML("1")},
		{Name: "copy/Party.xml", Body: testutil.PartyXML("2")},
		{Name: "doc.pdf", Body: "pdf"},
	}

	t.Run("reject", func(t *testing.T) {
		e := newEnv(t)
		out := e.processor(t).Process(e.zip(t, files...))
		assertOutcomeInvariant(t, out)
		assert.Equal(t, "metadata_ambiguous", out.Kind)
		assert.Empty(t, testutil.ListDir(t, e.cases))
	})

	t.Run("first", func(t *testing.T) {
		e := newEnv(t)
		e.cfg.MetadataPolicy = types.MetadataFirst
		out := e.processor(t).Process(e.zip(t, files...))
		require.True(t, out.Success, out.ErrorMessage)
		assert.True(t, strings.HasPrefix(out.DestinationFolder, "1-"))
	})
}

func TestProcessSchemaLoadFailure(t *testing.T) {
	e := newEnv(t)
	e.cfg.PartySchemaFilePath = filepath.Join(e.dir, "missing.xsd")

	out := e.processor(t).Process(e.zip(t, validCase()...))

	assertOutcomeInvariant(t, out)
	assert.Equal(t, "schema_load", out.Kind)
	assert.Contains(t, out.ErrorMessage, "missing.xsd")
	assert.Empty(t, testutil.ListDir(t, e.cases))
}

func TestProcessEmptyIdentifier(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t,
		testutil.File{Name: "party.xml", Body: testutil.PartyXML("   ")},
		testutil.File{Name: "doc.pdf", Body: "pdf"},
	)

	out := e.processor(t).Process(zipPath)

	assertOutcomeInvariant(t, out)
	assert.Equal(t, "Unable to get application number from 'party.xml'.", out.ErrorMessage)
	assert.Equal(t, "validation", out.Kind)
	assert.Empty(t, testutil.ListDir(t, e.cases))
}

func TestProcessRejectsIdentifierWithSeparator(t *testing.T) {
	e := newEnv(t)
	zipPath := e.zip(t,
		testutil.File{Name: "party.xml", Body: testutil.PartyXML("../escape")},
		testutil.File{Name: "doc.pdf", Body: "pdf"},
	)

	out := e.processor(t).Process(zipPath)

	assertOutcomeInvariant(t, out)
	assert.Equal(t, "validation", out.Kind)
	assert.Empty(t, testutil.ListDir(t, e.cases))
	assert.Equal(t, []string{"case.zip", "party.xsd"}, testutil.ListDir(t, e.dir))
}

func TestProcessExtractionFailure(t *testing.T) {
	e := newEnv(t)
	// A file where the case folder should be makes MkdirAll fail.
	testutil.WriteFile(t, e.dir, "cases", "not a directory")

	out := e.processor(t).Process(e.zip(t, validCase()...))

	assertOutcomeInvariant(t, out)
	assert.Equal(t, "extraction", out.Kind)
	assert.Contains(t, out.ErrorMessage, "Unable to create folder")
}

func TestProcessStaged(t *testing.T) {
	e := newEnv(t)
	e.cfg.Staged = true

	out := e.processor(t).Process(e.zip(t, validCase()...))

	require.True(t, out.Success, out.ErrorMessage)
	assert.Equal(t, []string{out.DestinationFolder}, testutil.ListDir(t, e.cases))
	assert.Equal(t, []string{"doc.pdf"}, testutil.ListDir(t, filepath.Join(e.cases, out.DestinationFolder)))
}

func TestProcessRecoversPanic(t *testing.T) {
	e := newEnv(t)
	p := e.processor(t)
	p.newToken = func() string { panic("token source exhausted") }

	out := p.Process(e.zip(t, validCase()...))

	assertOutcomeInvariant(t, out)
	assert.Equal(t, "unexpected", out.Kind)
	assert.Equal(t, "token source exhausted", out.ErrorMessage)
}

func TestProcessUsesToken(t *testing.T) {
	e := newEnv(t)
	p := e.processor(t)
	p.newToken = func() string { return "fixed" }

	out := p.Process(e.zip(t, validCase()...))
	require.True(t, out.Success, out.ErrorMessage)
	assert.Equal(t, "12345-fixed", out.DestinationFolder)
}

// --- reporting tests ---

func TestRunNotifiesSuccess(t *testing.T) {
	e := newEnv(t)
	p := e.processor(t)
	p.newToken = func() string { return "abc" }

	out := p.Run(context.Background(), e.zip(t, validCase()...))
	require.True(t, out.Success)

	require.Len(t, e.notifier.sent, 1)
	msg := e.notifier.sent[0]
	assert.Equal(t, "admin@example.com", msg.From)
	assert.Equal(t, "admin@example.com", msg.To)
	assert.Equal(t, "Case Files Extract Success", msg.Subject)
	assert.Equal(t, "Case files were successfully extracted to '12345-abc'.", msg.Body)
}

func TestRunNotifiesFailure(t *testing.T) {
	e := newEnv(t)
	missing := filepath.Join(e.dir, "gone.zip")

	out := e.processor(t).Run(context.Background(), missing)
	require.False(t, out.Success)

	require.Len(t, e.notifier.sent, 1)
	msg := e.notifier.sent[0]
	assert.Equal(t, "Case Files Extract Failure", msg.Subject)
	assert.Equal(t, "Case files were unsuccessfully extracted. Reason: 'Unable to find ZIP file '"+missing+"'.'.", msg.Body)
}

func TestRunLogsStartAndResult(t *testing.T) {
	e := newEnv(t)
	core, logs := observer.New(zapcore.InfoLevel)
	p, err := NewProcessor(e.cfg, e.notifier, zap.New(core).Sugar())
	require.NoError(t, err)

	zipPath := e.zip(t, testutil.File{Name: "doc.pdf", Body: "pdf"})
	p.Run(context.Background(), zipPath)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Starting processing '"+zipPath+"'.", entries[0].Message)
	assert.Equal(t, "Case files were unsuccessfully extracted. Reason: 'Unable to find 'party.xml' in ZIP file.'.", entries[1].Message)
	assert.Equal(t, "metadata_missing", entries[1].ContextMap()["kind"])
}

func TestRunNotifierFailureKeepsOutcome(t *testing.T) {
	e := newEnv(t)
	e.notifier.err = errors.New("relay down")
	core, logs := observer.New(zapcore.ErrorLevel)
	p, err := NewProcessor(e.cfg, e.notifier, zap.New(core).Sugar())
	require.NoError(t, err)

	out := p.Run(context.Background(), e.zip(t, validCase()...))

	assert.True(t, out.Success)
	require.Equal(t, 1, logs.FilterMessage("Unable to send notification").Len())
}

func TestRunRecordsAndObserves(t *testing.T) {
	e := newEnv(t)
	rec := &fakeRecorder{}
	obs := &fakeObserver{}
	p := e.processor(t, WithRecorder(rec), WithObserver(obs))
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ticks := []time.Time{start, start.Add(250 * time.Millisecond)}
	p.now = func() time.Time {
		next := ticks[0]
		ticks = ticks[1:]
		return next
	}

	zipPath := e.zip(t, validCase()...)
	out := p.Run(context.Background(), zipPath)
	require.True(t, out.Success)

	require.Len(t, rec.records, 1)
	r := rec.records[0]
	assert.Equal(t, zipPath, r.Archive)
	assert.True(t, r.Success)
	assert.Equal(t, out.DestinationFolder, r.Folder)
	assert.Equal(t, StatusMessage(out), r.Message)
	assert.Equal(t, start, r.StartedAt)
	assert.Equal(t, 250*time.Millisecond, r.Duration)
	assert.Equal(t, 1, r.FilesCount)

	require.Len(t, obs.outcomes, 1)
	assert.Equal(t, out, obs.outcomes[0])
}

func TestRunRecorderFailureIsLogged(t *testing.T) {
	e := newEnv(t)
	core, logs := observer.New(zapcore.WarnLevel)
	p, err := NewProcessor(e.cfg, e.notifier, zap.New(core).Sugar(),
		WithRecorder(&fakeRecorder{err: errors.New("disk full")}))
	require.NoError(t, err)

	out := p.Run(context.Background(), e.zip(t, validCase()...))

	assert.True(t, out.Success)
	assert.Equal(t, 1, logs.FilterMessage("Unable to record outcome").Len())
}

func TestStatusMessageAndSubject(t *testing.T) {
	ok := types.Succeeded("9-x", nil)
	bad := types.Failed("validation", "broken")
	assert.Equal(t, "Case files were successfully extracted to '9-x'.", StatusMessage(ok))
	assert.Equal(t, "Case files were unsuccessfully extracted. Reason: 'broken'.", StatusMessage(bad))
	assert.Equal(t, SubjectSuccess, Subject(ok))
	assert.Equal(t, SubjectFailure, Subject(bad))
}

// --- batch tests ---

func TestProcessBatch(t *testing.T) {
	e := newEnv(t)
	good := e.zip(t, validCase()...)
	bad := filepath.Join(e.dir, "missing.zip")

	res := e.processor(t).ProcessBatch(context.Background(), []string{good, bad, good})

	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Outcomes, 3)
	assert.False(t, res.Outcomes[1].Success)
	assert.Len(t, e.notifier.sent, 3)
	assert.Equal(t, "3 archive(s): 2 succeeded, 1 failed", res.String())
}

func TestProcessBatchCancelled(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.processor(t).ProcessBatch(ctx, []string{e.zip(t, validCase()...)})

	assert.Empty(t, res.Outcomes)
	assert.Empty(t, e.notifier.sent)
}
