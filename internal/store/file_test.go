package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-engine/internal/domain"
)

func TestFileStoreReadMissingShopYieldsEmpty(t *testing.T) {
	s := NewFileStore(t.TempDir())
	got, err := s.ReadCampaigns(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFileStoreWriteThenRead(t *testing.T) {
	s := NewFileStore(t.TempDir())
	sent := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	campaigns := []domain.Campaign{
		{
			ID:         "c1",
			Shop:       "acme",
			Recipients: []string{"a@x.com", "b@x.com"},
			Subject:    "Hello",
			Body:       "<p>Hi</p>",
			SendAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:      "c2",
			Shop:    "acme",
			Subject: "Done",
			Body:    "x",
			Segment: "vip",
			SendAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			SentAt:  &sent,
		},
	}

	require.NoError(t, s.WriteCampaigns(context.Background(), "acme", campaigns))

	got, err := s.ReadCampaigns(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, got[0].Recipients)
	assert.Nil(t, got[0].SentAt)
	require.NotNil(t, got[1].SentAt)
	assert.True(t, got[1].SentAt.Equal(sent))
	assert.Equal(t, "vip", got[1].Segment)
}

func TestFileStoreWriteReplacesWholeSet(t *testing.T) {
	s := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.WriteCampaigns(ctx, "acme", []domain.Campaign{{ID: "c1"}, {ID: "c2"}}))
	require.NoError(t, s.WriteCampaigns(ctx, "acme", []domain.Campaign{{ID: "c3"}}))

	got, err := s.ReadCampaigns(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c3", got[0].ID)
}

func TestFileStoreReadMalformedFileErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "acme", "campaigns.json"), []byte("{not json"), 0o644))

	s := NewFileStore(dir)
	_, err := s.ReadCampaigns(context.Background(), "acme")
	assert.Error(t, err)
}

func TestFileStoreListShops(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)
	ctx := context.Background()

	shops, err := s.ListShops(ctx)
	require.NoError(t, err)
	assert.Empty(t, shops)

	require.NoError(t, s.WriteCampaigns(ctx, "zeta", []domain.Campaign{{ID: "c1"}}))
	require.NoError(t, s.WriteCampaigns(ctx, "acme", []domain.Campaign{{ID: "c2"}}))
	// A shop dir without a campaigns file does not count.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty-shop"), 0o755))

	shops, err = s.ListShops(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "zeta"}, shops)
}
