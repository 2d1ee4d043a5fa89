package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ignite/campaign-engine/internal/domain"
)

const campaignsFile = "campaigns.json"

// FileStore keeps each shop's campaigns in
// <dir>/<shop>/campaigns.json as a JSON array.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(shop string) string {
	return filepath.Join(s.dir, shop, campaignsFile)
}

// ReadCampaigns loads the shop's campaign file. A missing file means
// the shop has no campaigns yet.
func (s *FileStore) ReadCampaigns(ctx context.Context, shop string) ([]domain.Campaign, error) {
	data, err := os.ReadFile(s.path(shop))
	if os.IsNotExist(err) {
		return []domain.Campaign{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading campaigns for %s: %w", shop, err)
	}

	var campaigns []domain.Campaign
	if err := json.Unmarshal(data, &campaigns); err != nil {
		return nil, fmt.Errorf("parsing campaigns for %s: %w", shop, err)
	}
	return campaigns, nil
}

// WriteCampaigns replaces the shop's campaign file. The write goes
// through a temp file and rename so a crash never leaves a torn file.
func (s *FileStore) WriteCampaigns(ctx context.Context, shop string, campaigns []domain.Campaign) error {
	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}
	data, err := json.MarshalIndent(campaigns, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding campaigns for %s: %w", shop, err)
	}

	dir := filepath.Join(s.dir, shop)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating shop dir for %s: %w", shop, err)
	}

	tmp, err := os.CreateTemp(dir, campaignsFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", shop, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing campaigns for %s: %w", shop, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing campaigns for %s: %w", shop, err)
	}
	if err := os.Rename(tmp.Name(), s.path(shop)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing campaigns for %s: %w", shop, err)
	}
	return nil
}

// ListShops returns every shop directory that carries a campaigns
// file, sorted for stable poll order.
func (s *FileStore) ListShops(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing shops: %w", err)
	}

	var shops []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(s.path(e.Name())); err == nil {
			shops = append(shops, e.Name())
		}
	}
	sort.Strings(shops)
	return shops, nil
}
