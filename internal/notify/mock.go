package notify

import (
	"context"

	"github.com/clinicbook/scheduler/pkg/logging"
)

// MockSender logs messages instead of sending them. It reports success
// so local and test environments exercise the same delivered-path as
// production.
type MockSender struct {
	logger *logging.Logger
}

// NewMockSender creates the logging transport.
func NewMockSender(logger *logging.Logger) *MockSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &MockSender{logger: logger}
}

// SendText logs the would-be message and reports success.
func (s *MockSender) SendText(ctx context.Context, to, body string) bool {
	s.logger.Info("mock sms", "to", to, "body", body)
	return true
}

var _ Sender = (*MockSender)(nil)
