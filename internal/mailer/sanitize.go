package mailer

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// bodyPolicy admits the markup campaigns actually use: structural
// tags, links, and the tracking pixel's img attributes. Everything
// else (scripts, event handlers, iframes) is stripped before a body
// goes anywhere near a provider.
var bodyPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "div", "span", "br", "hr", "ul", "ol", "li",
		"h1", "h2", "h3", "h4", "b", "i", "strong", "em", "u",
		"table", "tbody", "tr", "td", "th", "blockquote")
	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("src", "alt", "width", "height", "style").OnElements("img")
	p.AllowAttrs("style", "class").Globally()
	p.AllowStandardURLs()
	p.RequireNoFollowOnLinks(false)
	return p
}()

// SanitizeBody strips unsafe markup from a campaign body.
func SanitizeBody(htmlBody string) string {
	return bodyPolicy.Sanitize(htmlBody)
}

var (
	blockTagRe  = regexp.MustCompile(`(?i)</(p|div|li|h[1-6]|tr|blockquote)>|<br\s*/?>`)
	anyTagRe    = regexp.MustCompile(`<[^>]*>`)
	multiSpace  = regexp.MustCompile(`[ \t]+`)
	multiBlank  = regexp.MustCompile(`\n{3,}`)
	lineSpaceRe = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
)

// DeriveText produces a plain-text alternative from an HTML body for
// providers that want multipart content. Block boundaries become
// newlines; entities decode; runs of whitespace collapse.
func DeriveText(htmlBody string) string {
	s := blockTagRe.ReplaceAllString(htmlBody, "\n")
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = lineSpaceRe.ReplaceAllString(s, "")
	s = multiBlank.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
