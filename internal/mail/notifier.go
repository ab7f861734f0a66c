package mail

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	gomail "github.com/wneessen/go-mail"

	"finaid/internal/config"
)

// Notifier sends best-effort applicant notifications. Delivery failures are
// absorbed and logged; they never propagate to the caller, so a broken or
// slow mail relay cannot fail the workflow operation that triggered the
// notification.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string)
}

// smtpNotifier delivers through an external SMTP relay when the mail
// configuration is complete, and degrades to log-only mode otherwise.
type smtpNotifier struct {
	cfg     config.MailConfig
	deliver func(ctx context.Context, cfg config.MailConfig, to, subject, body string) error
	enc     *json.Encoder
}

// NewNotifier creates a Notifier from mail configuration, logging to stdout.
func NewNotifier(cfg config.MailConfig) Notifier {
	return NewNotifierWithWriter(cfg, os.Stdout)
}

// NewNotifierWithWriter is like NewNotifier but logs to the given writer.
func NewNotifierWithWriter(cfg config.MailConfig, w io.Writer) Notifier {
	return &smtpNotifier{
		cfg:     cfg,
		deliver: smtpDeliver,
		enc:     json.NewEncoder(w),
	}
}

// Notify attempts delivery and records the outcome. It returns nothing:
// the caller must not observe notification failures.
func (n *smtpNotifier) Notify(ctx context.Context, to, subject, body string) {
	if !n.cfg.Enabled() {
		n.log("info", "mail_disabled", to, subject, body, nil)
		return
	}

	timeout := time.Duration(n.cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := n.deliver(ctx, n.cfg, to, subject, body); err != nil {
		n.log("error", "mail_send_failed", to, subject, "", err)
		return
	}
	n.log("info", "mail_sent", to, subject, "", nil)
}

func (n *smtpNotifier) log(level, event, to, subject, body string, err error) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": "mail",
		"event":     event,
		"to":        to,
		"subject":   subject,
	}
	if body != "" {
		entry["body"] = body
	}
	if err != nil {
		entry["error"] = err.Error()
	}
	_ = n.enc.Encode(entry)
}

func smtpDeliver(ctx context.Context, cfg config.MailConfig, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(cfg.Username); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(cfg.Server,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, msg)
}
