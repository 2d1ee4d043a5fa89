package domain

import (
	"strconv"
	"time"
)

// Campaign represents one marketing-email campaign owned by a shop.
// SentAt is the sole durable marker of completed delivery: a campaign with
// SentAt set is never delivered again, but a delivery attempt that fails
// partway leaves SentAt nil and the whole campaign eligible for redelivery.
type Campaign struct {
	ID         string     `json:"id"`
	Shop       string     `json:"shop"`
	Recipients []string   `json:"recipients"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Segment    string     `json:"segment,omitempty"`
	SendAt     time.Time  `json:"sendAt"`
	TemplateID string     `json:"templateId,omitempty"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
}

// NewCampaignID derives a campaign id from a clock reading. Ids are the
// base-36 unix-millisecond timestamp: unique within one shop's list under
// normal creation rates, not globally unique across shops.
func NewCampaignID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 36)
}

// Due reports whether the campaign should be delivered at time now.
func (c *Campaign) Due(now time.Time) bool {
	return c.SentAt == nil && !c.SendAt.After(now)
}

// MarkSent stamps the delivery-completion time.
func (c *Campaign) MarkSent(now time.Time) {
	t := now.UTC()
	c.SentAt = &t
}
