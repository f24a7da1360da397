// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify delivers intake status reports to the administrator.
// The pipeline depends only on Notifier; transports live here.
package notify

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pdiddy/case-intake/internal/logger"
	"github.com/pdiddy/case-intake/pkg/types"
)

// Message is a composed status report.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Notifier sends a composed message.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, msg Message) error

// Send calls f.
func (f Func) Send(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Log writes messages to a logger instead of delivering them. It is the
// default transport and is useful for dry runs.
type Log struct {
	log *zap.SugaredLogger
}

// NewLog returns a Log notifier. A nil logger uses the "notify" component
// logger.
func NewLog(log *zap.SugaredLogger) *Log {
	if log == nil {
		log = logger.ComponentLogger("notify")
	}
	return &Log{log: log}
}

// Send logs msg at info level.
func (l *Log) Send(_ context.Context, msg Message) error {
	l.log.Infow(msg.Body,
		"from", msg.From,
		"to", msg.To,
		logger.FieldSubject, msg.Subject)
	return nil
}

// New builds the notifier selected by cfg.Transport, wrapped with retries.
func New(cfg types.NotifyConfig, log *zap.SugaredLogger) (Notifier, error) {
	if log == nil {
		log = logger.ComponentLogger("notify")
	}
	var n Notifier
	switch cfg.Transport {
	case "", types.TransportLog:
		n = NewLog(log)
	case types.TransportSMTP:
		s, err := NewSMTP(cfg)
		if err != nil {
			return nil, err
		}
		n = s
	default:
		return nil, errors.Newf("unknown notify.transport %q (want %q or %q)", cfg.Transport, types.TransportSMTP, types.TransportLog)
	}
	return WithRetry(n, cfg.MaxRetries, cfg.RetryBaseDelay, log), nil
}
