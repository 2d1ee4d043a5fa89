// Package store persists per-shop campaign sets. The scheduler treats
// a shop's campaigns as one document read and written whole, which
// keeps the file and Postgres backends interchangeable.
package store

import (
	"context"

	"github.com/ignite/campaign-engine/internal/domain"
)

// CampaignStore is the persistence contract the scheduler and poller
// depend on.
type CampaignStore interface {
	// ReadCampaigns returns the shop's campaigns in stored order. A
	// shop with no campaigns yields an empty slice, not an error.
	ReadCampaigns(ctx context.Context, shop string) ([]domain.Campaign, error)

	// WriteCampaigns replaces the shop's campaign set.
	WriteCampaigns(ctx context.Context, shop string, campaigns []domain.Campaign) error

	// ListShops returns every shop with stored campaigns.
	ListShops(ctx context.Context) ([]string, error)
}
