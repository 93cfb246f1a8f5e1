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

	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// SMSGatewayConfig controls the SMS gateway client.
type SMSGatewayConfig struct {
	BaseURL    string
	APIKey     string
	FromNumber string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// SMSGatewaySender delivers SMS reminders through a REST messaging gateway.
type SMSGatewaySender struct {
	baseURL    string
	apiKey     string
	fromNumber string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewSMSGatewaySender creates an SMS sender. Returns an error when the
// gateway is not configured.
func NewSMSGatewaySender(cfg SMSGatewayConfig, logger *logging.Logger) (*SMSGatewaySender, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("notify: sms gateway API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("notify: sms gateway base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMSGatewaySender{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		fromNumber: cfg.FromNumber,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type smsPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send implements Sender for the sms channel.
func (s *SMSGatewaySender) Send(ctx context.Context, ch Channel, msg Message) error {
	to := msg.Phone
	if to == "" {
		to = msg.To
	}
	if to == "" {
		return fmt.Errorf("notify: recipient has no phone number")
	}

	body, err := json.Marshal(smsPayload{From: s.fromNumber, To: to, Text: msg.Body})
	if err != nil {
		return fmt.Errorf("notify: marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: sms gateway request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		s.logger.Error("sms gateway returned error status", "status", resp.StatusCode, "to", to)
		return fmt.Errorf("notify: sms gateway returned status %d", resp.StatusCode)
	}

	s.logger.Info("reminder sms sent", "to", to)
	return nil
}

var _ Sender = (*SMSGatewaySender)(nil)
