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

// PushGatewayConfig controls the push gateway client.
type PushGatewayConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// PushGatewaySender delivers push reminders through a REST push gateway.
type PushGatewaySender struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewPushGatewaySender creates a push sender.
func NewPushGatewaySender(cfg PushGatewayConfig, logger *logging.Logger) (*PushGatewaySender, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("notify: push gateway base URL is required")
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
	return &PushGatewaySender{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type pushPayload struct {
	DeviceToken string `json:"device_token"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// Send implements Sender for the push channel.
func (s *PushGatewaySender) Send(ctx context.Context, ch Channel, msg Message) error {
	token := msg.DeviceToken
	if token == "" {
		return fmt.Errorf("notify: recipient has no device token")
	}

	body, err := json.Marshal(pushPayload{DeviceToken: token, Title: msg.Subject, Body: msg.Body})
	if err != nil {
		return fmt.Errorf("notify: marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build push request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: push gateway request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		s.logger.Error("push gateway returned error status", "status", resp.StatusCode)
		return fmt.Errorf("notify: push gateway returned status %d", resp.StatusCode)
	}

	s.logger.Info("reminder push sent")
	return nil
}

var _ Sender = (*PushGatewaySender)(nil)
