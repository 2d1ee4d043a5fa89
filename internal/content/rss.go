// Package content turns external feeds into campaign bodies. An RSS or
// Atom feed becomes a digest-style HTML body that the scheduler can
// deliver like any hand-written campaign.
package content

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// Item is one feed entry normalized for campaign use.
type Item struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Link        string    `json:"link"`
	PubDate     time.Time `json:"pub_date"`
	ImageURL    string    `json:"image_url,omitempty"`
}

// RSSSource fetches and renders feed-driven campaign bodies.
type RSSSource struct {
	parser *gofeed.Parser
	now    func() time.Time
	log    *logger.Logger
}

func NewRSSSource() *RSSSource {
	return &RSSSource{
		parser: gofeed.NewParser(),
		now:    time.Now,
		log:    logger.WithComponent("RSS"),
	}
}

// FetchItems pulls the feed and returns up to max normalized items in
// feed order. max <= 0 means all items.
func (s *RSSSource) FetchItems(ctx context.Context, feedURL string, max int) ([]Item, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", feedURL, err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, raw := range feed.Items {
		if max > 0 && len(items) >= max {
			break
		}
		items = append(items, s.normalize(raw))
	}
	s.log.Debug("feed fetched", "url", feedURL, "items", len(items))
	return items, nil
}

func (s *RSSSource) normalize(item *gofeed.Item) Item {
	out := Item{
		GUID:        item.GUID,
		Title:       item.Title,
		Description: stripHTML(item.Description),
		Link:        item.Link,
	}
	if out.GUID == "" {
		out.GUID = item.Link
	}

	switch {
	case item.PublishedParsed != nil:
		out.PubDate = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		out.PubDate = *item.UpdatedParsed
	default:
		out.PubDate = s.now()
	}

	if item.Image != nil {
		out.ImageURL = item.Image.URL
	} else if len(item.Enclosures) > 0 && strings.HasPrefix(item.Enclosures[0].Type, "image/") {
		out.ImageURL = item.Enclosures[0].URL
	}
	return out
}

// BuildBody renders items as a digest body. Every item link is a plain
// href so click rewriting picks it up downstream.
func BuildBody(title string, items []Item) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "<h1>%s</h1>", html.EscapeString(title))
	}
	for _, item := range items {
		b.WriteString(`<div class="feed-item">`)
		fmt.Fprintf(&b, `<h2><a href="%s">%s</a></h2>`, item.Link, html.EscapeString(item.Title))
		if item.ImageURL != "" {
			fmt.Fprintf(&b, `<img src="%s" alt=""/>`, item.ImageURL)
		}
		if item.Description != "" {
			fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(item.Description))
		}
		fmt.Fprintf(&b, `<p><a href="%s">Read more</a></p>`, item.Link)
		b.WriteString("</div>")
	}
	return b.String()
}

var tagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}
