// Package template renders campaign bodies with the Liquid template
// language so per-recipient personalization works without string
// surgery in the scheduler.
package template

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// Renderer parses and renders Liquid templates with a parse cache.
type Renderer struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
	log    *logger.Logger
}

// NewRenderer creates a renderer with the campaign filter set
// registered.
func NewRenderer() *Renderer {
	r := &Renderer{
		engine: liquid.NewEngine(),
		log:    logger.WithComponent("Template"),
	}
	r.registerFilters()
	return r
}

func (r *Renderer) registerFilters() {
	// {{ first_name | default: "Friend" }}
	r.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ name | capitalize }}
	r.engine.RegisterFilter("capitalize", func(s string) string {
		if len(s) == 0 {
			return s
		}
		return strings.ToUpper(string(s[0])) + strings.ToLower(s[1:])
	})

	// {{ email | urlencode }}
	r.engine.RegisterFilter("urlencode", func(s string) string {
		return url.QueryEscape(s)
	})

	// {{ user_input | escape }}
	r.engine.RegisterFilter("escape", func(s string) string {
		return html.EscapeString(s)
	})
}

// Parse validates template syntax without rendering.
func (r *Renderer) Parse(templateStr string) error {
	_, err := r.engine.ParseString(templateStr)
	return err
}

// Render renders templateStr against ctx. A non-empty cacheKey caches
// the parsed template across calls; campaigns use their id so a body
// is parsed once per delivery, not once per recipient. On error the
// original string comes back so the caller can fall back to sending
// the raw body.
func (r *Renderer) Render(cacheKey, templateStr string, ctx map[string]interface{}) (string, error) {
	if cacheKey != "" {
		if cached, ok := r.cache.Load(cacheKey); ok {
			return cached.(*liquid.Template).RenderString(ctx)
		}
	}

	tpl, err := r.engine.ParseString(templateStr)
	if err != nil {
		r.log.Warn("template parse error", "error", err.Error())
		return templateStr, err
	}

	if cacheKey != "" {
		r.cache.Store(cacheKey, tpl)
	}

	out, err := tpl.RenderString(ctx)
	if err != nil {
		r.log.Warn("template render error", "error", err.Error())
		return templateStr, err
	}
	return out, nil
}

// ClearCacheKey drops one cached template, for when a stored template
// body is edited.
func (r *Renderer) ClearCacheKey(key string) {
	r.cache.Delete(key)
}
