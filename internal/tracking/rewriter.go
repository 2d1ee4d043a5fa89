// Package tracking builds and serves the open/click/unsubscribe surface
// of campaign emails: pure HTML transforms on the send path and the HTTP
// endpoints the rewritten URLs point back at.
package tracking

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// UnsubscribePlaceholder marks where campaign authors want the
// per-recipient unsubscribe link. Bodies without it get an unsubscribe
// paragraph appended instead.
const UnsubscribePlaceholder = "%%UNSUBSCRIBE%%"

const (
	openPath        = "/api/marketing/email/open"
	clickPath       = "/api/marketing/email/click"
	unsubscribePath = "/api/marketing/email/unsubscribe"
)

// Rewriter produces tracked campaign HTML. It is stateless and performs
// no I/O; base is the public URL prefix for tracking endpoints and may be
// empty, yielding relative links.
type Rewriter struct {
	base string
}

// NewRewriter creates a rewriter rooted at the given base URL.
func NewRewriter(base string) *Rewriter {
	return &Rewriter{base: strings.TrimSuffix(base, "/")}
}

// TrackedBody appends the open-tracking pixel and rewrites every
// href="..." value into a click-redirect URL. It is a whole-document
// rewrite with no notion of which links are safe to skip; callers must
// apply it exactly once per campaign.
func (r *Rewriter) TrackedBody(shop, campaignID, html string, now time.Time) string {
	pixel := fmt.Sprintf(
		`<img src="%s?shop=%s&campaign=%s&t=%d" alt="" style="display:none" width="1" height="1"/>`,
		r.base+openPath, encode(shop), encode(campaignID), now.UnixMilli(),
	)
	return r.rewriteLinks(html+pixel, shop, campaignID)
}

// UnsubscribeURL builds the deterministic per-recipient unsubscribe link.
func (r *Rewriter) UnsubscribeURL(shop, campaignID, email string) string {
	return fmt.Sprintf("%s?shop=%s&campaign=%s&email=%s",
		r.base+unsubscribePath, encode(shop), encode(campaignID), encode(email))
}

// clickURL wraps destination in the click-redirect endpoint, carrying the
// original URL percent-encoded in the url parameter.
func (r *Rewriter) clickURL(shop, campaignID, destination string) string {
	return fmt.Sprintf("%s?shop=%s&campaign=%s&url=%s",
		r.base+clickPath, encode(shop), encode(campaignID), encode(destination))
}

// rewriteLinks replaces the value of every href attribute. String scan
// rather than an HTML parse: campaign bodies are fragments, not
// documents, and the rewrite must touch every href verbatim.
func (r *Rewriter) rewriteLinks(html, shop, campaignID string) string {
	var b strings.Builder
	rest := html
	for {
		i := strings.Index(rest, `href="`)
		if i == -1 {
			break
		}
		start := i + len(`href="`)
		end := strings.Index(rest[start:], `"`)
		if end == -1 {
			break
		}
		original := rest[start : start+end]
		b.WriteString(rest[:start])
		b.WriteString(r.clickURL(shop, campaignID, original))
		rest = rest[start+end:]
	}
	b.WriteString(rest)
	return b.String()
}

// HasUnsubscribePlaceholder checks the shared tracked body once per
// campaign; its outcome is fixed for the whole send.
func HasUnsubscribePlaceholder(html string) bool {
	return strings.Contains(html, UnsubscribePlaceholder)
}

// WithUnsubscribe produces the per-recipient body: placeholder bodies get
// every occurrence substituted, others get one unsubscribe paragraph
// appended at the end.
func WithUnsubscribe(html, unsubscribeURL string, hasPlaceholder bool) string {
	anchor := fmt.Sprintf(`<a href="%s">Unsubscribe</a>`, unsubscribeURL)
	if hasPlaceholder {
		return strings.ReplaceAll(html, UnsubscribePlaceholder, anchor)
	}
	return html + "<p>" + anchor + "</p>"
}

// encode matches JS encodeURIComponent closely enough for the URL
// contract: query-escape, but spaces as %20 rather than +.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
