// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Outcome is the result of one intake run. Exactly one of
// DestinationFolder and ErrorMessage is non-empty.
type Outcome struct {
	// Success reports whether the case files were extracted.
	Success bool `json:"success" yaml:"success"`

	// DestinationFolder is the new folder's name relative to the case
	// files folder, e.g. "12345-<uuid>".
	DestinationFolder string `json:"destination_folder,omitempty" yaml:"destination_folder,omitempty"`

	// ErrorMessage is the operator-facing failure reason.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// Kind classifies a failure ("" on success).
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Extracted lists the file names written, in archive order.
	Extracted []string `json:"extracted,omitempty" yaml:"extracted,omitempty"`
}

// Succeeded builds a success Outcome.
func Succeeded(folder string, extracted []string) Outcome {
	return Outcome{Success: true, DestinationFolder: folder, Extracted: extracted}
}

// Failed builds a failure Outcome.
func Failed(kind, message string) Outcome {
	return Outcome{Kind: kind, ErrorMessage: message}
}

// Record is one row of the outcome ledger.
type Record struct {
	ID         int64         `json:"id" yaml:"id"`
	Archive    string        `json:"archive" yaml:"archive"`
	Success    bool          `json:"success" yaml:"success"`
	Kind       string        `json:"kind,omitempty" yaml:"kind,omitempty"`
	Folder     string        `json:"folder,omitempty" yaml:"folder,omitempty"`
	Message    string        `json:"message" yaml:"message"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	FilesCount int           `json:"files_count" yaml:"files_count"`
}
