package sms

import (
	"context"
	"net/http"
)

// Portal delivers messages, one fresh Session per call.
type Portal struct {
	cfg    Config
	client *http.Client
}

// NewPortal builds a Portal sharing one HTTP client across sessions.
func NewPortal(cfg Config) *Portal {
	return &Portal{
		cfg:    cfg,
		client: NewClient(cfg.Timeout),
	}
}

// Deliver runs the full login, token and send sequence once.
func (p *Portal) Deliver(ctx context.Context, recipient, message string) error {
	session := NewSession(p.cfg, p.client)

	if err := session.Login(ctx); err != nil {
		return err
	}

	return session.Send(ctx, recipient, message)
}
