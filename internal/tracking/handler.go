package tracking

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ignite/campaign-engine/internal/domain"
	"github.com/ignite/campaign-engine/internal/events"
	"github.com/ignite/campaign-engine/internal/hooks"
	"github.com/ignite/campaign-engine/internal/pkg/logger"
)

// pixelGIF is a 1x1 transparent GIF returned by the open endpoint.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler serves the tracking endpoints the rewritten URLs point at.
// Opens and clicks feed the hook bus; unsubscribes append a suppression
// event to the shop's event log.
type Handler struct {
	bus *hooks.Bus
	log events.Appender
	lg  *logger.Logger
}

// NewHandler creates the tracking HTTP handler.
func NewHandler(bus *hooks.Bus, log events.Appender) *Handler {
	return &Handler{bus: bus, log: log, lg: logger.WithComponent("Tracking")}
}

// Router mounts the tracking routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedMethods: []string{http.MethodGet},
		AllowedOrigins: []string{"*"},
	}))
	r.Get(openPath, h.handleOpen)
	r.Get(clickPath, h.handleClick)
	r.Get(unsubscribePath, h.handleUnsubscribe)
	return r
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	shop, campaign, ok := h.shopAndCampaign(w, r)
	if !ok {
		return
	}

	if err := h.bus.EmitOpen(r.Context(), shop, hooks.Payload{Campaign: campaign}); err != nil {
		h.lg.Warn("open hook failed", "shop", shop, "campaign", campaign, "error", err.Error())
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	w.WriteHeader(http.StatusOK)
	w.Write(pixelGIF)
}

func (h *Handler) handleClick(w http.ResponseWriter, r *http.Request) {
	shop, campaign, ok := h.shopAndCampaign(w, r)
	if !ok {
		return
	}
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "missing url", http.StatusBadRequest)
		return
	}

	if err := h.bus.EmitClick(r.Context(), shop, hooks.Payload{Campaign: campaign}); err != nil {
		h.lg.Warn("click hook failed", "shop", shop, "campaign", campaign, "error", err.Error())
	}

	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	shop, campaign, ok := h.shopAndCampaign(w, r)
	if !ok {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Error(w, "missing email", http.StatusBadRequest)
		return
	}

	err := h.log.Append(r.Context(), shop, domain.Event{
		"type":     domain.EventUnsubscribe,
		"email":    email,
		"campaign": campaign,
	})
	if err != nil {
		h.lg.Error("unsubscribe append failed", "shop", shop, "error", err.Error())
		http.Error(w, "unsubscribe failed", http.StatusInternalServerError)
		return
	}

	h.lg.Info("unsubscribed", "shop", shop, "campaign", campaign, "email", email)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte("<p>You have been unsubscribed.</p>"))
}

func (h *Handler) shopAndCampaign(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	q := r.URL.Query()
	shop, err := domain.ValidateShopName(q.Get("shop"))
	if err != nil {
		http.Error(w, "invalid shop", http.StatusBadRequest)
		return "", "", false
	}
	campaign := q.Get("campaign")
	if campaign == "" {
		http.Error(w, "missing campaign", http.StatusBadRequest)
		return "", "", false
	}
	return shop, campaign, true
}
