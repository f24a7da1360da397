// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

// Field names shared by every component so log lines can be grepped and
// aggregated consistently.
const (
	FieldArchive    = "archive"
	FieldFolder     = "folder"
	FieldKind       = "kind"
	FieldError      = "error"
	FieldCount      = "count"
	FieldEntry      = "entry"
	FieldSubject    = "subject"
	FieldAttempt    = "attempt"
	FieldDurationMS = "duration_ms"
	FieldPath       = "path"
	FieldOp         = "op"
)
