// Package provider defines the pluggable ESP contract and its concrete
// adapters. Adapters classify send failures as retryable or permanent;
// retry policy itself belongs to callers.
package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Message is one outbound campaign email.
type Message struct {
	To      string
	From    string
	Subject string
	HTML    string
	Text    string
}

// Stats summarizes provider-side campaign counters.
type Stats struct {
	Delivered int `json:"delivered"`
	Opens     int `json:"opens"`
	Clicks    int `json:"clicks"`
	Bounces   int `json:"bounces"`
}

// List is a provider-side contact list or segment.
type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Adapter is the pluggable ESP client.
type Adapter interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
	CampaignStats(ctx context.Context, campaignID string) (*Stats, error)
	CreateContact(ctx context.Context, email string) (string, error)
	AddToList(ctx context.Context, contactID, listID string) error
	ListSegments(ctx context.Context) ([]List, error)
}

// Error is a classified provider failure. Retryable failures are
// transient (5xx, network); 4xx responses are permanent.
type Error struct {
	Message   string
	Status    int
	Retryable bool
}

func (e *Error) Error() string {
	return e.Message
}

// Classify builds an Error from an HTTP-ish status code. A zero status
// means no status could be extracted (network-level failure) and
// defaults to retryable, as do all server errors; client errors are
// permanent.
func Classify(status int, format string, args ...interface{}) *Error {
	return &Error{
		Message:   fmt.Sprintf(format, args...),
		Status:    status,
		Retryable: status == 0 || status >= 500,
	}
}

// IsRetryable reports whether err may be retried. Classified errors
// carry the answer; anything unclassified defaults to retryable.
func IsRetryable(err error) bool {
	if pe, ok := err.(*Error); ok {
		return pe.Retryable
	}
	return true
}

// Registry maps provider names to constructed adapters. It is an
// explicit value built once at startup and passed to the scheduler; no
// package-level singleton map.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry over the given adapters, keyed by
// Adapter.Name.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Select returns the named adapter, or an error listing what is
// available.
func (r *Registry) Select(name string) (Adapter, error) {
	if a, ok := r.adapters[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unsupported email provider %q (available: %s)", name, strings.Join(r.Names(), ", "))
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
