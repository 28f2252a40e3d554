package notify

import (
	"context"
	"strings"
	"time"

	"github.com/clinicbook/scheduler/pkg/logging"
)

// Sender delivers one text message. The boolean reports delivery;
// transport failures are logged, never returned, because SMS is
// best-effort everywhere it is used.
type Sender interface {
	SendText(ctx context.Context, to, body string) bool
}

// Config controls which sender is built and how it behaves.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

// NewSender picks the real Twilio transport when usable credentials are
// present and falls back to the logging mock otherwise. Twilio account
// SIDs always start with "AC"; anything else is a placeholder.
func NewSender(cfg Config, logger *logging.Logger) Sender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" ||
		!strings.HasPrefix(cfg.AccountSID, "AC") {
		logger.Info("sms transport in mock mode, messages will be logged only")
		return NewMockSender(logger)
	}
	return NewTwilioSender(cfg, logger)
}
