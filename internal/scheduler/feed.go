package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/campaign-engine/internal/content"
	"github.com/ignite/campaign-engine/internal/domain"
)

// ContentSource fetches feed items for digest campaigns.
type ContentSource interface {
	FetchItems(ctx context.Context, feedURL string, max int) ([]content.Item, error)
}

// FeedCampaign configures one feed-driven digest campaign.
type FeedCampaign struct {
	Shop       string
	Segment    string
	Recipients []string
	Subject    string
	FeedURL    string
	MaxItems   int
	SendAt     time.Time
}

// CreateFeedCampaign fetches the feed and creates a digest campaign
// from its items. With no explicit Subject the newest item's title is
// used. The resulting campaign goes through the normal CreateCampaign
// path: validation, segment resolution, immediate-vs-scheduled.
func (s *Scheduler) CreateFeedCampaign(ctx context.Context, src ContentSource, fc FeedCampaign) (*domain.Campaign, error) {
	items, err := src.FetchItems(ctx, fc.FeedURL, fc.MaxItems)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("feed %s has no items", fc.FeedURL)
	}

	subject := fc.Subject
	if subject == "" {
		subject = items[0].Title
	}

	return s.CreateCampaign(ctx, CampaignInput{
		Shop:       fc.Shop,
		Recipients: fc.Recipients,
		Segment:    fc.Segment,
		Subject:    subject,
		Body:       content.BuildBody(subject, items),
		SendAt:     fc.SendAt,
	})
}
