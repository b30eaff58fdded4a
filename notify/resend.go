package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultResendEndpoint is the Resend send-email API.
	DefaultResendEndpoint = "https://api.resend.com/emails"

	// Sandbox addresses used when ResendConfig.Sandbox is set. Resend accepts
	// them without a verified domain and never delivers to a real inbox.
	sandboxFrom = "onboarding@resend.dev"
	sandboxTo   = "delivered@resend.dev"

	maxErrorBody = 4 << 10
)

// ErrMissingAPIKey is returned by NewResendSender without an API key.
var ErrMissingAPIKey = errors.New("notify: resend api key is required")

// ResendError is a non-2xx answer from the Resend API.
type ResendError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *ResendError) Error() string {
	return fmt.Sprintf("resend: %d %s - %s", e.StatusCode, e.Name, e.Message)
}

type ResendConfig struct {
	APIKey string
	// From is the sender address, e.g. "billing@example.com".
	From    string
	AppName string
	// Sandbox routes every message from and to the Resend test addresses.
	Sandbox  bool
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
}

// ResendSender delivers messages through the Resend HTTP API.
type ResendSender struct {
	cfg    ResendConfig
	client *http.Client
}

func NewResendSender(cfg ResendConfig) (*ResendSender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultResendEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &ResendSender{cfg: cfg, client: client}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text,omitempty"`
	HTML    string   `json:"html,omitempty"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (s *ResendSender) from() string {
	if s.cfg.Sandbox {
		return sandboxFrom
	}
	if s.cfg.AppName != "" {
		return fmt.Sprintf("%s <%s>", s.cfg.AppName, s.cfg.From)
	}
	return s.cfg.From
}

func (s *ResendSender) Send(ctx context.Context, msg Message) (Delivery, error) {
	if strings.TrimSpace(msg.To) == "" {
		return Delivery{}, ErrNoRecipient
	}
	to := msg.To
	if s.cfg.Sandbox {
		to = sandboxTo
	}

	body, err := json.Marshal(resendRequest{
		From:    s.from(),
		To:      []string{to},
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return Delivery{}, fmt.Errorf("resend: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Delivery{}, fmt.Errorf("resend: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Delivery{}, fmt.Errorf("resend: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return Delivery{}, fmt.Errorf("resend: read response: %w", err)
	}

	var decoded resendResponse
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Delivery{}, &ResendError{
			StatusCode: resp.StatusCode,
			Name:       decoded.Name,
			Message:    decoded.Message,
		}
	}
	return Delivery{ID: decoded.ID}, nil
}
