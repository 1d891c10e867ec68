package mail

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/seoulglow/kbeauty-store/internal/domain/notify"
)

// Log is a transport that writes messages to the context logger instead of
// sending them. Used when no SMTP host is configured.
type Log struct{}

// Send logs msg at info level.
func (Log) Send(ctx context.Context, msg notify.Message) error {
	zctx.From(ctx).Info("Email (not sent, log transport)",
		zap.String("to", msg.To),
		zap.String("from", msg.From),
		zap.String("subject", msg.Subject),
		zap.Int("html_bytes", len(msg.HTML)),
	)
	return nil
}

var _ notify.Transport = Log{}
