package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// SendGrid sends through the SendGrid v3 API.
type SendGrid struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger

	readyOnce sync.Once
	ready     chan error
}

// NewSendGrid creates the adapter. No network traffic happens until a
// send or a Ready call; the credential sanity check (a lightweight
// authenticated GET) runs once, on the first Ready.
func NewSendGrid(apiKey string) *SendGrid {
	return &SendGrid{
		apiKey:  apiKey,
		baseURL: "https://api.sendgrid.com/v3",
		client:  &http.Client{Timeout: 60 * time.Second},
		log:     logger.WithComponent("SendGrid"),
		ready:   make(chan error, 1),
	}
}

// Name implements Adapter.
func (s *SendGrid) Name() string { return "sendgrid" }

// Ready fires the credential check on first call, blocks until it
// finishes, and returns its outcome. Subsequent calls return the same
// cached outcome immediately. Callers may gate on this before trusting
// the adapter; the scheduler does not.
func (s *SendGrid) Ready(ctx context.Context) error {
	s.readyOnce.Do(func() { go s.checkCredentials() })
	select {
	case err := <-s.ready:
		// Re-arm so every caller observes the same outcome.
		s.ready <- err
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SendGrid) checkCredentials() {
	if s.apiKey == "" {
		s.ready <- fmt.Errorf("sendgrid: API key not configured")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/scopes", nil)
	if err != nil {
		s.ready <- err
		return
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.ready <- fmt.Errorf("sendgrid: credential check: %w", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		s.ready <- fmt.Errorf("sendgrid: credential check failed with status %d", resp.StatusCode)
		return
	}
	s.ready <- nil
}

// Send delivers one email via the mail/send endpoint.
func (s *SendGrid) Send(ctx context.Context, msg *Message) error {
	if s.apiKey == "" {
		return &Error{Message: "sendgrid: API key not configured", Retryable: false}
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{
			{"to": []map[string]string{{"email": msg.To}}},
		},
		"from":    map[string]string{"email": msg.From},
		"subject": msg.Subject,
		"content": contentBlocks(msg),
	}

	status, body, err := s.do(ctx, http.MethodPost, "/mail/send", payload)
	if err != nil {
		return Classify(0, "sendgrid: send: %v", err)
	}
	if status >= 400 {
		return Classify(status, "sendgrid: send failed with status %d: %s", status, body)
	}

	s.log.Debug("sent", "recipient", logger.RedactEmail(msg.To))
	return nil
}

// CampaignStats fetches single-send stats.
func (s *SendGrid) CampaignStats(ctx context.Context, campaignID string) (*Stats, error) {
	status, body, err := s.do(ctx, http.MethodGet, "/marketing/stats/singlesends/"+campaignID, nil)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: stats: %w", err)
	}
	if status >= 400 {
		return nil, Classify(status, "sendgrid: stats failed with status %d", status)
	}

	var parsed struct {
		Results []struct {
			Stats struct {
				Delivered int `json:"delivered"`
				Opens     int `json:"unique_opens"`
				Clicks    int `json:"unique_clicks"`
				Bounces   int `json:"bounces"`
			} `json:"stats"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("sendgrid: decode stats: %w", err)
	}
	out := &Stats{}
	for _, r := range parsed.Results {
		out.Delivered += r.Stats.Delivered
		out.Opens += r.Stats.Opens
		out.Clicks += r.Stats.Clicks
		out.Bounces += r.Stats.Bounces
	}
	return out, nil
}

// CreateContact upserts a marketing contact and returns its id.
func (s *SendGrid) CreateContact(ctx context.Context, email string) (string, error) {
	payload := map[string]interface{}{
		"contacts": []map[string]string{{"email": email}},
	}
	status, _, err := s.do(ctx, http.MethodPut, "/marketing/contacts", payload)
	if err != nil {
		return "", fmt.Errorf("sendgrid: create contact: %w", err)
	}
	if status >= 400 {
		return "", Classify(status, "sendgrid: create contact failed with status %d", status)
	}
	// The contacts API is async and keys on email; synthesize a stable
	// local id for callers that need one immediately.
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(email)).String(), nil
}

// AddToList attaches a contact to a marketing list.
func (s *SendGrid) AddToList(ctx context.Context, contactID, listID string) error {
	payload := map[string]interface{}{
		"list_ids": []string{listID},
		"contacts": []map[string]string{{"id": contactID}},
	}
	status, _, err := s.do(ctx, http.MethodPut, "/marketing/contacts", payload)
	if err != nil {
		return fmt.Errorf("sendgrid: add to list: %w", err)
	}
	if status >= 400 {
		return Classify(status, "sendgrid: add to list failed with status %d", status)
	}
	return nil
}

// ListSegments returns the provider-side marketing segments.
func (s *SendGrid) ListSegments(ctx context.Context) ([]List, error) {
	status, body, err := s.do(ctx, http.MethodGet, "/marketing/segments/2.0", nil)
	if err != nil {
		return nil, fmt.Errorf("sendgrid: list segments: %w", err)
	}
	if status >= 400 {
		return nil, Classify(status, "sendgrid: list segments failed with status %d", status)
	}

	var parsed struct {
		Results []List `json:"results"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("sendgrid: decode segments: %w", err)
	}
	return parsed.Results, nil
}

func (s *SendGrid) do(ctx context.Context, method, path string, payload interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}

func contentBlocks(msg *Message) []map[string]string {
	if msg.Text != "" {
		return []map[string]string{
			{"type": "text/plain", "value": msg.Text},
			{"type": "text/html", "value": msg.HTML},
		}
	}
	return []map[string]string{{"type": "text/html", "value": msg.HTML}}
}
