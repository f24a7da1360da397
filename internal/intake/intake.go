// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package intake runs the case intake pipeline: open the archive, validate
// party.xml, and extract whitelisted case files into a new folder named
// after the application number.
//
// Process never panics or returns an error; every run ends in exactly one
// types.Outcome. Run adds reporting on top: it logs, notifies the
// administrator, and records the outcome in the ledger and metrics.
package intake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/case-intake/internal/archive"
	"github.com/pdiddy/case-intake/internal/extract"
	"github.com/pdiddy/case-intake/internal/failure"
	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/internal/notify"
	"github.com/pdiddy/case-intake/internal/schema"
	"github.com/pdiddy/case-intake/pkg/types"
)

// MetadataFileName is the archive entry holding case metadata.
const MetadataFileName = "party.xml"

const (
	SubjectSuccess = "Case Files Extract Success"
	SubjectFailure = "Case Files Extract Failure"
)

// Recorder persists run outcomes.
type Recorder interface {
	Record(ctx context.Context, rec types.Record) (int64, error)
}

// Observer receives every outcome with its run duration.
type Observer interface {
	Observe(o types.Outcome, d time.Duration)
}

// Option configures a Processor.
type Option func(*Processor)

// WithRecorder records every Run in r.
func WithRecorder(r Recorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithObserver reports every Run to o.
func WithObserver(o Observer) Option {
	return func(p *Processor) { p.observer = o }
}

// Processor runs the pipeline for one intake configuration. It holds no
// per-run state and may be reused; runs are not coordinated with each
// other beyond the unique destination folder names.
type Processor struct {
	cfg       types.IntakeConfig
	whitelist archive.Whitelist
	notifier  notify.Notifier
	log       *zap.SugaredLogger
	recorder  Recorder
	observer  Observer

	newToken func() string
	now      func() time.Time
}

// NewProcessor validates cfg and returns a Processor that reports through
// n and log. A nil log uses the "intake" component logger.
func NewProcessor(cfg types.IntakeConfig, n notify.Notifier, log *zap.SugaredLogger, opts ...Option) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errors.New("intake processor requires a notifier")
	}
	if log == nil {
		log = logger.ComponentLogger("intake")
	}
	p := &Processor{
		cfg:       cfg,
		whitelist: archive.ParseWhitelist(cfg.CaseFileTypes, cfg.ExtensionMatch),
		notifier:  n,
		log:       log,
		newToken:  uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.whitelist.Len() == 0 {
		log.Warnw("Case file type whitelist is empty; no files will be extracted")
	}
	return p, nil
}

// StaleStaging returns the staging folders that interrupted staged
// extractions left in the case files folder, logging a warning for each.
// They are never removed automatically.
func (p *Processor) StaleStaging() []string {
	dirents, err := os.ReadDir(p.cfg.CaseFilesFolder)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			p.log.Warnw("Unable to scan case files folder", logger.FieldPath, p.cfg.CaseFilesFolder, logger.FieldError, err)
		}
		return nil
	}
	var stale []string
	for _, d := range dirents {
		if !d.IsDir() || !extract.IsStaging(d.Name()) {
			continue
		}
		path := filepath.Join(p.cfg.CaseFilesFolder, d.Name())
		p.log.Warnw("Found staging folder left by an interrupted extraction", logger.FieldPath, path)
		stale = append(stale, path)
	}
	return stale
}

// Process runs the pipeline for the archive at zipPath. On success the
// Outcome carries the destination folder name relative to the case files
// folder; on failure it carries the operator message. A panic in any step
// is recovered and reported as an Unexpected failure.
func (p *Processor) Process(zipPath string) (out types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			err := failure.FromPanic(r)
			p.log.Errorw("Recovered from panic", logger.FieldArchive, zipPath, logger.FieldError, err)
			out = types.Failed(failure.Unexpected.String(), failure.Message(err))
		}
	}()

	folder, extracted, err := p.process(zipPath)
	if err != nil {
		return types.Failed(failure.KindOf(err).String(), failure.Message(err))
	}
	return types.Succeeded(folder, extracted)
}

func (p *Processor) process(zipPath string) (string, []string, error) {
	a, err := archive.Open(zipPath)
	if err != nil {
		return "", nil, err
	}
	defer a.Close()
	p.log.Debugw("Opened archive", logger.FieldArchive, zipPath, logger.FieldCount, len(a.Entries()))

	entry, err := a.LocateMetadata(MetadataFileName, p.cfg.MetadataPolicy)
	if err != nil {
		return "", nil, err
	}
	p.log.Debugw("Located metadata", logger.FieldArchive, zipPath, logger.FieldEntry, entry.Name())

	s, err := schema.Load(p.cfg.PartySchemaFilePath)
	if err != nil {
		return "", nil, err
	}

	id, err := p.readIdentifier(entry, s)
	if err != nil {
		return "", nil, err
	}

	folder := id + "-" + p.newToken()
	entries := a.SelectExtractable(p.whitelist)
	p.log.Debugw("Extracting case files",
		logger.FieldArchive, zipPath,
		logger.FieldFolder, folder,
		logger.FieldCount, len(entries))

	var extracted []string
	if p.cfg.Staged {
		extracted, err = extract.Staged(entries, p.cfg.CaseFilesFolder, folder)
	} else {
		extracted, err = extract.ToFolder(entries, filepath.Join(p.cfg.CaseFilesFolder, folder))
	}
	if err != nil {
		return "", nil, err
	}
	return folder, extracted, nil
}

func (p *Processor) readIdentifier(entry archive.Entry, s *schema.Schema) (string, error) {
	rc, err := entry.Open()
	if err != nil {
		return "", failure.Wrap(err, failure.Unexpected, "Unable to read '%s': %v", entry.Name(), err)
	}
	defer rc.Close()

	id, err := schema.ValidateAndExtractIdentifier(rc, s, schema.ApplicationNoPath)
	if errors.Is(err, schema.ErrEmptyIdentifier) {
		return "", failure.Wrap(err, failure.Validation, "Unable to get application number from '%s'.", MetadataFileName)
	}
	if err != nil {
		return "", err
	}
	if !validFolderPrefix(id) {
		return "", failure.New(failure.Validation,
			"Application number '%s' cannot be used as a folder name.", id)
	}
	return id, nil
}

// validFolderPrefix rejects identifiers that would escape or nest under
// the case files folder.
func validFolderPrefix(id string) bool {
	if id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`+"\x00")
}

// Run processes zipPath and reports the outcome: it logs the start and
// final status message, sends the status to the administrator, and
// records the run. Reporting failures are logged and never change the
// returned Outcome.
func (p *Processor) Run(ctx context.Context, zipPath string) types.Outcome {
	start := p.now()
	p.log.Infof("Starting processing '%s'.", zipPath)

	out := p.Process(zipPath)
	elapsed := p.now().Sub(start)

	msg := StatusMessage(out)
	p.notifyAdmin(ctx, out, msg)

	fields := []interface{}{logger.FieldArchive, zipPath, logger.FieldDurationMS, elapsed.Milliseconds()}
	if out.Success {
		fields = append(fields, logger.FieldFolder, out.DestinationFolder, logger.FieldCount, len(out.Extracted))
	} else {
		fields = append(fields, logger.FieldKind, out.Kind)
	}
	p.log.Infow(msg, fields...)

	if p.observer != nil {
		p.observer.Observe(out, elapsed)
	}
	if p.recorder != nil {
		rec := types.Record{
			Archive:    zipPath,
			Success:    out.Success,
			Kind:       out.Kind,
			Folder:     out.DestinationFolder,
			Message:    msg,
			StartedAt:  start,
			Duration:   elapsed,
			FilesCount: len(out.Extracted),
		}
		if _, err := p.recorder.Record(ctx, rec); err != nil {
			p.log.Warnw("Unable to record outcome", logger.FieldArchive, zipPath, logger.FieldError, err)
		}
	}
	return out
}

func (p *Processor) notifyAdmin(ctx context.Context, out types.Outcome, body string) {
	msg := notify.Message{
		From:    p.cfg.AdminEmail,
		To:      p.cfg.AdminEmail,
		Subject: Subject(out),
		Body:    body,
	}
	if err := p.notifier.Send(ctx, msg); err != nil {
		p.log.Errorw("Unable to send notification",
			logger.FieldSubject, msg.Subject,
			logger.FieldError, err)
	}
}

// StatusMessage renders the operator-facing report for o.
func StatusMessage(o types.Outcome) string {
	if o.Success {
		return "Case files were successfully extracted to '" + o.DestinationFolder + "'."
	}
	return "Case files were unsuccessfully extracted. Reason: '" + o.ErrorMessage + "'."
}

// Subject returns the notification subject for o.
func Subject(o types.Outcome) string {
	if o.Success {
		return SubjectSuccess
	}
	return SubjectFailure
}

// BatchResult summarises ProcessBatch.
type BatchResult struct {
	Succeeded int
	Failed    int
	Outcomes  []types.Outcome
}

// ProcessBatch runs each archive in order with Run. It stops early, without
// starting further archives, when ctx is cancelled.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string) BatchResult {
	var res BatchResult
	for _, path := range paths {
		if ctx.Err() != nil {
			p.log.Warnw("Batch cancelled", logger.FieldCount, len(res.Outcomes))
			break
		}
		out := p.Run(ctx, path)
		res.Outcomes = append(res.Outcomes, out)
		if out.Success {
			res.Succeeded++
		} else {
			res.Failed++
		}
	}
	return res
}

// String formats the batch counts for the terminal.
func (r BatchResult) String() string {
	return fmt.Sprintf("%d archive(s): %d succeeded, %d failed", len(r.Outcomes), r.Succeeded, r.Failed)
}
