// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	mail "github.com/wneessen/go-mail"

	"github.com/pdiddy/case-intake/pkg/types"
)

const (
	defaultSMTPPort    = 587
	defaultSMTPTimeout = 30 * time.Second
)

// SMTP delivers messages through an SMTP relay.
type SMTP struct {
	cfg types.NotifyConfig
}

// NewSMTP validates cfg and returns an SMTP notifier. Nothing is dialled
// until Send.
func NewSMTP(cfg types.NotifyConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp notifier requires notify.host")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	if _, err := tlsPolicy(cfg.TLS); err != nil {
		return nil, err
	}
	return &SMTP{cfg: cfg}, nil
}

// Send dials the relay and sends msg as a plain-text mail.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	from := msg.From
	if s.cfg.From != "" {
		from = s.cfg.From
	}
	if err := m.From(from); err != nil {
		return errors.Wrapf(err, "setting sender %q", from)
	}
	if err := m.To(msg.To); err != nil {
		return errors.Wrapf(err, "setting recipient %q", msg.To)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	client, err := s.client()
	if err != nil {
		return err
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrapf(err, "sending mail via %s:%d", s.cfg.Host, s.cfg.Port)
	}
	return nil
}

func (s *SMTP) client() (*mail.Client, error) {
	policy, err := tlsPolicy(s.cfg.TLS)
	if err != nil {
		return nil, err
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.cfg.Timeout),
		mail.WithTLSPolicy(policy),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating smtp client")
	}
	return c, nil
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch name {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	}
	return 0, errors.Newf("unknown notify.tls %q (want mandatory, opportunistic, or none)", name)
}
