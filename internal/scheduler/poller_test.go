package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/provider"
)

func newPollerEnv(t *testing.T) (*env, *Poller) {
	t.Helper()
	e := newEnv(t, Config{})
	return e, NewPoller(e.sched, e.store, time.Hour)
}

func seedCampaign(e *env, shop string, c domain.Campaign) {
	existing := e.store.shops[shop]
	e.store.shops[shop] = append(existing, c)
}

func TestSendDueCampaignsDeliversOnlyDue(t *testing.T) {
	e, p := newPollerEnv(t)
	now := e.clock.Now()
	already := now.Add(-time.Hour)

	seedCampaign(e, "acme", domain.Campaign{
		ID: "due", Recipients: []string{"a@x.com"}, Subject: "S", Body: "B",
		SendAt: now.Add(-time.Minute),
	})
	seedCampaign(e, "acme", domain.Campaign{
		ID: "future", Recipients: []string{"b@x.com"}, Subject: "S", Body: "B",
		SendAt: now.Add(time.Minute),
	})
	seedCampaign(e, "acme", domain.Campaign{
		ID: "sent", Recipients: []string{"c@x.com"}, Subject: "S", Body: "B",
		SendAt: now.Add(-time.Hour), SentAt: &already,
	})

	require.NoError(t, p.SendDueCampaigns(context.Background()))

	assert.Equal(t, []string{"a@x.com"}, e.adapter.recipients())

	stored, _ := e.store.ReadCampaigns(context.Background(), "acme")
	require.Len(t, stored, 3)
	assert.NotNil(t, stored[0].SentAt, "due campaign stamped")
	assert.Nil(t, stored[1].SentAt, "future campaign untouched")
	assert.True(t, stored[2].SentAt.Equal(already), "sent campaign untouched")
}

func TestSendDueCampaignsSweepsEveryShop(t *testing.T) {
	e, p := newPollerEnv(t)
	due := e.clock.Now().Add(-time.Minute)

	seedCampaign(e, "acme", domain.Campaign{
		ID: "c1", Recipients: []string{"a@x.com"}, Subject: "S", Body: "B", SendAt: due,
	})
	seedCampaign(e, "zeta", domain.Campaign{
		ID: "c2", Recipients: []string{"z@x.com"}, Subject: "S", Body: "B", SendAt: due,
	})

	require.NoError(t, p.SendDueCampaigns(context.Background()))
	assert.ElementsMatch(t, []string{"a@x.com", "z@x.com"}, e.adapter.recipients())

	processed, failures := p.Stats()
	assert.EqualValues(t, 2, processed)
	assert.EqualValues(t, 0, failures)
}

func TestSendDueCampaignsAggregatesFailures(t *testing.T) {
	e, p := newPollerEnv(t)
	e.adapter.failErr = provider.Classify(503, "down")
	due := e.clock.Now().Add(-time.Minute)

	seedCampaign(e, "acme", domain.Campaign{
		ID: "c1", Recipients: []string{"a@x.com"}, Subject: "S", Body: "B", SendAt: due,
	})
	seedCampaign(e, "acme", domain.Campaign{
		ID: "c2", Recipients: []string{"b@x.com"}, Subject: "S", Body: "B", SendAt: due,
	})

	err := p.SendDueCampaigns(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed campaigns: c1, c2", err.Error())

	// Nothing succeeded, so the list is not rewritten.
	assert.Zero(t, e.store.writes)
}

func TestSendDueCampaignsContinuesPastFailedCampaign(t *testing.T) {
	e, p := newPollerEnv(t)
	due := e.clock.Now().Add(-time.Minute)

	// The first send succeeds, everything after fails.
	e.adapter.failErr = provider.Classify(400, "rejected")
	e.adapter.failAfter = 1

	seedCampaign(e, "acme", domain.Campaign{
		ID: "ok", Recipients: []string{"a@x.com"}, Subject: "S", Body: "B", SendAt: due,
	})
	seedCampaign(e, "acme", domain.Campaign{
		ID: "bad", Recipients: []string{"b@x.com"}, Subject: "S", Body: "B", SendAt: due,
	})

	err := p.SendDueCampaigns(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Failed campaigns: bad", err.Error())

	// The successful campaign is stamped and persisted; the failed one
	// stays due for the next pass.
	stored, _ := e.store.ReadCampaigns(context.Background(), "acme")
	assert.NotNil(t, stored[0].SentAt)
	assert.Nil(t, stored[1].SentAt)
	assert.Equal(t, 1, e.store.writes)
}

func TestSendDueCampaignsWritesBackOnlyChangedShops(t *testing.T) {
	e, p := newPollerEnv(t)

	seedCampaign(e, "acme", domain.Campaign{
		ID: "future", Recipients: []string{"a@x.com"}, Subject: "S", Body: "B",
		SendAt: e.clock.Now().Add(time.Hour),
	})
	seedCampaign(e, "zeta", domain.Campaign{
		ID: "due", Recipients: []string{"z@x.com"}, Subject: "S", Body: "B",
		SendAt: e.clock.Now().Add(-time.Hour),
	})

	require.NoError(t, p.SendDueCampaigns(context.Background()))
	assert.Equal(t, 1, e.store.writes, "only the shop with a delivered campaign is rewritten")
}

func TestSendDueCampaignsInvalidShopAbortsPass(t *testing.T) {
	e, p := newPollerEnv(t)
	e.store.shopNames = []string{"bad*shop"}

	err := p.SendDueCampaigns(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid shop name")
}

func TestSendDueCampaignsStoreErrorsPropagate(t *testing.T) {
	e, p := newPollerEnv(t)
	e.store.listErr = assert.AnError

	err := p.SendDueCampaigns(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPollerStartStop(t *testing.T) {
	e := newEnv(t, Config{})
	p := NewPoller(e.sched, e.store, 10*time.Millisecond)

	seedCampaign(e, "acme", domain.Campaign{
		ID: "c1", Recipients: []string{"a@x.com"}, Subject: "S", Body: "B",
		SendAt: e.clock.Now().Add(-time.Minute),
	})

	require.NoError(t, p.Start())
	assert.Error(t, p.Start(), "double start rejected")

	require.Eventually(t, func() bool {
		processed, _ := p.Stats()
		return processed >= 1
	}, 2*time.Second, 5*time.Millisecond)

	p.Stop()
	p.Stop() // idempotent

	assert.Equal(t, []string{"a@x.com"}, e.adapter.recipients())
}
