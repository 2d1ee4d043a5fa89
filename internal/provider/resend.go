package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// Resend sends through the Resend REST API. Resend has no campaign
// stats or contact-list surface comparable to SendGrid's, so those
// operations report unsupported.
type Resend struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewResend(apiKey string) *Resend {
	return &Resend{
		apiKey:  apiKey,
		baseURL: "https://api.resend.com",
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     logger.WithComponent("Resend"),
	}
}

// Name implements Adapter.
func (r *Resend) Name() string { return "resend" }

// Send delivers one email via POST /emails.
func (r *Resend) Send(ctx context.Context, msg *Message) error {
	if r.apiKey == "" {
		return &Error{Message: "resend: API key not configured", Retryable: false}
	}

	payload := map[string]interface{}{
		"from":    msg.From,
		"to":      []string{msg.To},
		"subject": msg.Subject,
		"html":    msg.HTML,
	}
	if msg.Text != "" {
		payload["text"] = msg.Text
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("resend: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/emails", bytes.NewBuffer(data))
	if err != nil {
		return fmt.Errorf("resend: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return Classify(0, "resend: send: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return Classify(resp.StatusCode, "resend: send failed with status %d: %s", resp.StatusCode, body)
	}

	r.log.Debug("sent", "recipient", logger.RedactEmail(msg.To))
	return nil
}

// CampaignStats implements Adapter; Resend exposes no stats API.
func (r *Resend) CampaignStats(ctx context.Context, campaignID string) (*Stats, error) {
	return nil, fmt.Errorf("resend: campaign stats not supported")
}

// CreateContact implements Adapter; Resend audiences are not wired.
func (r *Resend) CreateContact(ctx context.Context, email string) (string, error) {
	return "", fmt.Errorf("resend: contacts not supported")
}

// AddToList implements Adapter.
func (r *Resend) AddToList(ctx context.Context, contactID, listID string) error {
	return fmt.Errorf("resend: lists not supported")
}

// ListSegments implements Adapter.
func (r *Resend) ListSegments(ctx context.Context) ([]List, error) {
	return nil, fmt.Errorf("resend: segments not supported")
}
