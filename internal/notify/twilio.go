package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clinicbook/scheduler/pkg/logging"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers texts through the Twilio Messages endpoint.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewTwilioSender creates the real transport.
func NewTwilioSender(cfg Config, logger *logging.Logger) *TwilioSender {
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TwilioSender{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    twilioBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// SendText posts one message. Any failure is logged and swallowed.
func (s *TwilioSender) SendText(ctx context.Context, to, body string) bool {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.from)
	form.Set("Body", body)

	endpoint := s.baseURL + "/Accounts/" + s.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		s.logger.Error("twilio request build failed", "error", err)
		return false
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("twilio send failed", "error", err, "to", to)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("twilio rejected message",
			"status", resp.StatusCode,
			"to", to,
			"detail", twilioErrorDetail(resp.Body),
		)
		return false
	}
	s.logger.Info("sms delivered", "to", to)
	return true
}

func twilioErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil || parsed.Message == "" {
		return string(data)
	}
	return parsed.Message
}

var _ Sender = (*TwilioSender)(nil)
