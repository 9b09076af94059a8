package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"
)

const welcomeBody = `Hello,

{{.Service}} {{.Version}} is up and ready to process users.

Started at {{.StartedAt.Format "2006-01-02 15:04:05 MST"}}.
`

var welcomeTemplate = template.Must(template.New("welcome").Parse(welcomeBody))

// WelcomeConfig describes the welcome notification.
type WelcomeConfig struct {
	To      string
	Subject string
	Service string
	Version string
}

// WelcomeMailer sends the welcome notification through a Sender.
type WelcomeMailer struct {
	cfg    WelcomeConfig
	sender Sender
	now    func() time.Time
	log    *zap.Logger
}

// NewWelcomeMailer creates a WelcomeMailer.
func NewWelcomeMailer(cfg WelcomeConfig, sender Sender, log *zap.Logger) *WelcomeMailer {
	return &WelcomeMailer{cfg: cfg, sender: sender, now: time.Now, log: log}
}

// SendWelcome renders and sends the welcome message.
func (w *WelcomeMailer) SendWelcome(ctx context.Context) error {
	var body bytes.Buffer
	err := welcomeTemplate.Execute(&body, struct {
		Service   string
		Version   string
		StartedAt time.Time
	}{w.cfg.Service, w.cfg.Version, w.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to render welcome mail: %w", err)
	}

	msg := Message{
		To:      w.cfg.To,
		Subject: w.cfg.Subject,
		Body:    body.String(),
	}
	if err := w.sender.Send(ctx, msg); err != nil {
		return err
	}

	w.log.Info("welcome mail handed off", zap.String("to", msg.To))
	return nil
}
