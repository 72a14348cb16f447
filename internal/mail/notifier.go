package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/GridtNetwork/gridtlib/internal/clock"
)

// Template is one named entry in the notifier's registry: a subject
// line and a markdown body, both rendered as text/template against the
// data passed to Send.
type Template struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Registry maps a template id (§4.2's "change-password-notice",
// "email-change-token", "password-reset-token", ...) to its Template.
type Registry map[string]Template

// LoadRegistry parses a templates.yaml document (SPEC_FULL §6) into a
// Registry.
func LoadRegistry(data []byte) (Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("mail: parse template registry: %w", err)
	}
	return reg, nil
}

// Notifier sends templated email. Identity flows call Send with a
// template id and a data map; Send-failures are logged by identity
// rather than returned to the end user, except when the operation being
// performed *is* the send (spec §7).
type Notifier struct {
	cfg   SMTPConfig
	from  string
	clock clock.Clock
	reg   Registry
	log   *slog.Logger
}

// NewNotifier constructs a Notifier. logger defaults to slog.Default()
// if nil.
func NewNotifier(cfg SMTPConfig, from string, c clock.Clock, reg Registry, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{cfg: cfg, from: from, clock: c, reg: reg, log: logger}
}

// Send renders templateID against data and delivers it to toEmail. An
// unknown templateID is a programmer error (returned, not logged) since
// it can only come from a bug in the caller, not end-user input.
func (n *Notifier) Send(ctx context.Context, toEmail, templateID string, data map[string]any) error {
	tpl, ok := n.reg[templateID]
	if !ok {
		return fmt.Errorf("mail: unknown template %q", templateID)
	}

	subject, err := renderText(templateID+":subject", tpl.Subject, data)
	if err != nil {
		return err
	}
	body, err := renderText(templateID+":body", tpl.Body, data)
	if err != nil {
		return err
	}

	msg, err := ComposeMessage(n.clock, ComposeOptions{
		From:    n.from,
		To:      []string{toEmail},
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return err
	}

	recipients := collectRecipients([]string{toEmail})
	if err := SendMail(ctx, n.cfg, n.from, recipients, msg); err != nil {
		return fmt.Errorf("mail: send %q to %s: %w", templateID, toEmail, err)
	}
	return nil
}

func renderText(name, text string, data map[string]any) (string, error) {
	tpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("mail: parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("mail: render template %s: %w", name, err)
	}
	return buf.String(), nil
}
