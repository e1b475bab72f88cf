package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultResendBaseURL = "https://api.resend.com"

// Resend sends mail through the Resend HTTP API.
type Resend struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

// NewResend returns nil when no API key is configured.
func NewResend(apiKey, baseURL string) *Resend {
	if apiKey == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	return &Resend{
		APIKey:  apiKey,
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (r *Resend) Send(ctx context.Context, m Message) error {
	if r == nil || r.APIKey == "" {
		return ErrDisabled
	}
	body, err := json.Marshal(resendPayload{
		From:    m.From,
		To:      []string{m.To},
		Subject: m.Subject,
		HTML:    m.HTML,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.APIKey)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr resendError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
		return fmt.Errorf("resend: %d %s: %s", resp.StatusCode, apiErr.Name, apiErr.Message)
	}
	return fmt.Errorf("resend: unexpected status %d", resp.StatusCode)
}
