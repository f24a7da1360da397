// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package failure classifies the ways a case intake run can end badly.
// Every component returns a *Error carrying a Kind and the single
// operator-facing message for that failure; the pipeline turns it into
// an Outcome without reformatting.
package failure

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind identifies the step that failed.
type Kind int

const (
	// Unexpected covers anything not classified below.
	Unexpected Kind = iota
	// ArchiveNotFound means the ZIP path does not exist.
	ArchiveNotFound
	// MetadataMissing means no party.xml entry was found.
	MetadataMissing
	// MetadataAmbiguous means more than one party.xml entry was found.
	MetadataAmbiguous
	// SchemaLoad means the XSD could not be read or understood.
	SchemaLoad
	// Validation means party.xml failed the schema or lacks an application number.
	Validation
	// Extraction means an I/O error occurred while writing case files.
	Extraction
)

// String returns the snake_case name used in logs, metrics, and the ledger.
func (k Kind) String() string {
	switch k {
	case ArchiveNotFound:
		return "archive_not_found"
	case MetadataMissing:
		return "metadata_missing"
	case MetadataAmbiguous:
		return "metadata_ambiguous"
	case SchemaLoad:
		return "schema_load"
	case Validation:
		return "validation"
	case Extraction:
		return "extraction"
	default:
		return "unexpected"
	}
}

// Error is a classified failure. Message is shown to operators verbatim.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error returns the operator message, falling back to the cause.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a formatted message and a stack trace.
func New(kind Kind, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Message: msg, Err: errors.NewWithDepth(1, msg)}
}

// Wrap classifies cause under kind with a formatted message. A nil cause
// yields nil.
func Wrap(cause error, kind Kind, format string, args ...interface{}) error {
	if cause == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     errors.WithStackDepth(cause, 1),
	}
}

// KindOf reports the Kind of err. Unclassified errors are Unexpected.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unexpected
}

// Message returns the operator message for err: the classified message
// when there is one, otherwise the error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Error()
	}
	return err.Error()
}

// FromPanic converts a recovered panic value into an Unexpected error.
func FromPanic(v interface{}) error {
	if err, ok := v.(error); ok {
		return &Error{Kind: Unexpected, Message: err.Error(), Err: errors.WithStack(err)}
	}
	msg := fmt.Sprint(v)
	return &Error{Kind: Unexpected, Message: msg, Err: errors.New(msg)}
}
