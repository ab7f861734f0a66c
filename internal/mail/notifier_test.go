package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"finaid/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNotifier(cfg config.MailConfig, buf *bytes.Buffer) *smtpNotifier {
	return NewNotifierWithWriter(cfg, buf).(*smtpNotifier)
}

func decodeLog(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNotify_DisabledConfigLogsOnly(t *testing.T) {
	var buf bytes.Buffer
	n := newTestNotifier(config.MailConfig{}, &buf)
	n.deliver = func(ctx context.Context, cfg config.MailConfig, to, subject, body string) error {
		t.Fatal("deliver must not be called when mail is disabled")
		return nil
	}

	n.Notify(context.Background(), "a@x.com", "Application Submitted", "Your application (ID: 1) was submitted.")

	entry := decodeLog(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "mail_disabled", entry["event"])
	assert.Equal(t, "a@x.com", entry["to"])
	assert.Equal(t, "Application Submitted", entry["subject"])
	assert.Contains(t, entry["body"], "ID: 1")
}

func TestNotify_DeliveryFailureIsAbsorbed(t *testing.T) {
	cfg := config.MailConfig{Server: "smtp.example.com", Port: 587, Username: "u", Password: "p"}

	var buf bytes.Buffer
	n := newTestNotifier(cfg, &buf)
	n.deliver = func(ctx context.Context, cfg config.MailConfig, to, subject, body string) error {
		return errors.New("connection refused")
	}

	// Must not panic or surface the error in any way.
	n.Notify(context.Background(), "a@x.com", "Application Verified", "status changed")

	entry := decodeLog(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "mail_send_failed", entry["event"])
	assert.Equal(t, "connection refused", entry["error"])
}

func TestNotify_SuccessfulDelivery(t *testing.T) {
	cfg := config.MailConfig{Server: "smtp.example.com", Port: 587, Username: "u", Password: "p"}

	var buf bytes.Buffer
	var gotTo, gotSubject, gotBody string
	n := newTestNotifier(cfg, &buf)
	n.deliver = func(ctx context.Context, cfg config.MailConfig, to, subject, body string) error {
		gotTo, gotSubject, gotBody = to, subject, body
		// The relay call must run under a deadline so a slow server cannot
		// stall the calling workflow.
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	}

	n.Notify(context.Background(), "a@x.com", "Application Verified", "Comment: ok")

	assert.Equal(t, "a@x.com", gotTo)
	assert.Equal(t, "Application Verified", gotSubject)
	assert.Equal(t, "Comment: ok", gotBody)

	entry := decodeLog(t, &buf)
	assert.Equal(t, "mail_sent", entry["event"])
}
