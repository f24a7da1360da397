// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/case-intake/pkg/types"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

var sample = Message{
	From:    "admin@example.com",
	To:      "admin@example.com",
	Subject: "Case Files Extract Success",
	Body:    "Case files were successfully extracted to '12345-abc'.",
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLog(zap.New(core).Sugar())

	require.NoError(t, n.Send(context.Background(), sample))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, sample.Body, entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, sample.Subject, fields["subject"])
	assert.Equal(t, sample.To, fields["to"])
}

func TestFuncNotifier(t *testing.T) {
	var got Message
	n := Func(func(_ context.Context, m Message) error {
		got = m
		return nil
	})
	require.NoError(t, n.Send(context.Background(), sample))
	assert.Equal(t, sample, got)
}

func TestWithRetry_ImmediateSuccess(t *testing.T) {
	var calls int32
	n := WithRetry(Func(func(context.Context, Message) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}), 3, 0, zap.NewNop().Sugar())

	require.NoError(t, n.Send(context.Background(), sample))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWithRetry_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	n := WithRetry(Func(func(context.Context, Message) error {
		if atomic.AddInt32(&calls, 1) <= 2 {
			return errors.New("relay busy")
		}
		return nil
	}), 3, 0, zap.NewNop().Sugar())

	require.NoError(t, n.Send(context.Background(), sample))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWithRetry_ExhaustsRetries(t *testing.T) {
	var calls int32
	n := WithRetry(Func(func(context.Context, Message) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("relay down")
	}), 2, time.Millisecond, zap.NewNop().Sugar())

	err := n.Send(context.Background(), sample)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay down")
	// 1 initial + 2 retries.
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n := WithRetry(Func(func(context.Context, Message) error {
		cancel()
		return errors.New("relay down")
	}), 3, time.Hour, zap.NewNop().Sugar())

	err := n.Send(ctx, sample)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_LogsAttempts(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	var calls int32
	n := WithRetry(Func(func(context.Context, Message) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return errors.New("relay busy")
		}
		return nil
	}), 3, 0, zap.New(core).Sugar())

	require.NoError(t, n.Send(context.Background(), sample))
	require.Equal(t, 1, logs.Len())
	assert.EqualValues(t, 1, logs.All()[0].ContextMap()["attempt"])
}

func TestNewSMTP(t *testing.T) {
	_, err := NewSMTP(types.NotifyConfig{})
	assert.Error(t, err)

	_, err = NewSMTP(types.NotifyConfig{Host: "smtp.example.com", TLS: "sometimes"})
	assert.Error(t, err)

	s, err := NewSMTP(types.NotifyConfig{Host: "smtp.example.com"})
	require.NoError(t, err)
	assert.Equal(t, defaultSMTPPort, s.cfg.Port)
	assert.Equal(t, defaultSMTPTimeout, s.cfg.Timeout)
}

func TestSMTPRejectsBadAddress(t *testing.T) {
	s, err := NewSMTP(types.NotifyConfig{Host: "127.0.0.1", Port: 1, TLS: "none"})
	require.NoError(t, err)

	bad := sample
	bad.To = "not an address"
	err = s.Send(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "setting recipient")
}

func TestNew(t *testing.T) {
	n, err := New(types.NotifyConfig{}, nil)
	require.NoError(t, err)
	_, ok := n.(*Retrying)
	assert.True(t, ok)

	_, err = New(types.NotifyConfig{Transport: "pigeon"}, nil)
	assert.Error(t, err)

	_, err = New(types.NotifyConfig{Transport: types.TransportSMTP}, nil)
	assert.Error(t, err)
}
