package mail

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/seoulglow/kbeauty-store/internal/domain/notify"
)

func TestBuildRaw(t *testing.T) {
	date := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	raw := string(buildRaw(notify.Message{
		To:      "jiwoo@example.com",
		From:    `"Seoul Glow" <orders@seoulglow.test>`,
		Subject: "Your order #ABCDEF12 has shipped",
		HTML:    "<p>Hi</p>",
	}, date))

	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	assert.Equal(t, "<p>Hi</p>", body)

	lines := strings.Split(head, "\r\n")
	assert.Equal(t, []string{
		`From: "Seoul Glow" <orders@seoulglow.test>`,
		"To: jiwoo@example.com",
		"Subject: Your order #ABCDEF12 has shipped",
		"Date: Fri, 01 May 2026 10:00:00 +0000",
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}, lines)
}

func TestBuildRaw_EncodesNonASCIISubject(t *testing.T) {
	raw := string(buildRaw(notify.Message{Subject: "주문이 발송되었습니다"}, time.Now()))
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
}

func TestBuildRaw_StripsHeaderInjection(t *testing.T) {
	raw := string(buildRaw(notify.Message{
		To:      "victim@example.com\r\nBcc: attacker@example.com",
		Subject: "hello",
	}, time.Now()))
	assert.NotContains(t, raw, "\r\nBcc:")
	assert.Contains(t, raw, "To: victim@example.comBcc: attacker@example.com\r\n")
}

func TestSMTPSend_InvalidAddresses(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "localhost"})

	err := s.Send(context.Background(), notify.Message{From: "not an address", To: "jiwoo@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sender")

	err = s.Send(context.Background(), notify.Message{From: "orders@seoulglow.test", To: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse recipient")
}

func TestNewSMTP_Defaults(t *testing.T) {
	s := NewSMTP(SMTPConfig{Host: "smtp.test"})
	assert.Equal(t, 587, s.cfg.Port)
	assert.Equal(t, 10*time.Second, s.cfg.Timeout)
	assert.Equal(t, "smtp.test:587", s.cfg.String())
}

func TestAddress(t *testing.T) {
	assert.Equal(t, "orders@seoulglow.test", Address("", "orders@seoulglow.test"))
	assert.Equal(t, `"Seoul Glow" <orders@seoulglow.test>`, Address("Seoul Glow", "orders@seoulglow.test"))
}

func TestLogTransport(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := zctx.Base(context.Background(), zap.New(core))

	err := Log{}.Send(ctx, notify.Message{To: "jiwoo@example.com", Subject: "Your order #ORD-1 has shipped"})
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "jiwoo@example.com", entries[0].ContextMap()["to"])
	assert.Equal(t, "Your order #ORD-1 has shipped", entries[0].ContextMap()["subject"])
}
