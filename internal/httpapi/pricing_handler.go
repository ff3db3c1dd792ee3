package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"correction_pricing/internal/logging"
	"correction_pricing/internal/models"
	"correction_pricing/internal/pricing"
	"correction_pricing/internal/tariffcache"
	"correction_pricing/internal/utils"
)

// Rule set origins reported to clients
const (
	RulesFromCatalog = "catalog"
	RulesFromDefault = "default"
)

// PricingHandler serves the public pricing surfaces. None of them fail when
// the catalog is unreachable: they price with the last-known-good catalog or
// the default rules and flag the response as stale.
type PricingHandler struct {
	deps *Dependencies
}

func NewPricingHandler(deps *Dependencies) *PricingHandler {
	return &PricingHandler{deps: deps}
}

// RulesResponse is returned by GET /api/pricing/rules
type RulesResponse struct {
	Rules   []pricing.Rule `json:"rules"`
	Source  string         `json:"source"`
	Version uint64         `json:"version"`
	Stale   bool           `json:"stale"`
}

// QuoteResponse is returned by GET /api/pricing/quote
type QuoteResponse struct {
	pricing.Breakdown
	Version uint64 `json:"version"`
	Stale   bool   `json:"stale"`
}

// PacksResponse is returned by GET /api/pricing/packs
type PacksResponse struct {
	Packs   []pricing.Breakdown `json:"packs"`
	Version uint64              `json:"version"`
	Stale   bool                `json:"stale"`
}

// RefreshResponse is returned by POST /admin/pricing/refresh
type RefreshResponse struct {
	Version     uint64 `json:"version"`
	TariffCount int    `json:"tariff_count"`
}

// ruleSet is the priced view of the catalog at one point in time
type ruleSet struct {
	rules   []pricing.Rule
	source  string
	version uint64
	stale   bool
}

func (h *PricingHandler) currentRules(ctx context.Context) ruleSet {
	cache := h.deps.Cache

	current, err := cache.ReadVersioned(ctx, cache.StaleTime())
	if err != nil {
		logging.Warningf("Pricing with fallback rules: %v", err)
		snap := cache.Snapshot()
		if snap.Loaded {
			return ruleSet{rules: pricing.ExtractRules(snap.Data), source: sourceOf(snap.Data), version: snap.Version, stale: true}
		}
		return ruleSet{rules: pricing.DefaultRules(), source: RulesFromDefault, stale: true}
	}

	return ruleSet{
		rules:   pricing.ExtractRules(current.Data),
		source:  sourceOf(current.Data),
		version: current.Version,
		stale:   !current.Valid,
	}
}

func sourceOf(catalog []models.TariffRecord) string {
	for i := range catalog {
		if catalog[i].IsPageBased() && catalog[i].HasValidPrice() {
			return RulesFromCatalog
		}
	}
	return RulesFromDefault
}

// breakdown prices pageCount, memoized per catalog version for fresh rule sets
func (h *PricingHandler) breakdown(rs ruleSet, pageCount int) pricing.Breakdown {
	quotes := h.deps.Quotes
	if quotes == nil || rs.stale {
		return pricing.ComputeBreakdown(pageCount, rs.rules)
	}

	key := fmt.Sprintf("%d:%d", rs.version, pageCount)
	if b, ok := quotes.Get(key); ok {
		return b
	}
	b := pricing.ComputeBreakdown(pageCount, rs.rules)
	quotes.Set(key, b)
	return b
}

func parsePages(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("pages")
	if raw == "" {
		return 0, fmt.Errorf("pages is required")
	}
	pages, err := strconv.Atoi(raw)
	if err != nil || pages < 0 {
		return 0, fmt.Errorf("pages must be a non-negative integer")
	}
	return pages, nil
}

// Tariffs handles GET /api/tariffs
func (h *PricingHandler) Tariffs(w http.ResponseWriter, r *http.Request) {
	cache := h.deps.Cache

	data, err := cache.Read(r.Context(), cache.StaleTime())
	if err != nil {
		snap := cache.Snapshot()
		if !snap.Loaded {
			utils.RespondWithError(w, http.StatusServiceUnavailable, "Tariff catalog unavailable")
			return
		}
		w.Header().Set("X-Catalog-Stale", "true")
		data = snap.Data
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"tariffs": data})
}

// Rules handles GET /api/pricing/rules
func (h *PricingHandler) Rules(w http.ResponseWriter, r *http.Request) {
	rs := h.currentRules(r.Context())
	respondJSON(w, http.StatusOK, RulesResponse{
		Rules:   rs.rules,
		Source:  rs.source,
		Version: rs.version,
		Stale:   rs.stale,
	})
}

// Quote handles GET /api/pricing/quote?pages=N
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	pages, err := parsePages(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rs := h.currentRules(r.Context())
	respondJSON(w, http.StatusOK, QuoteResponse{
		Breakdown: h.breakdown(rs, pages),
		Version:   rs.version,
		Stale:     rs.stale,
	})
}

// Packs handles GET /api/pricing/packs
func (h *PricingHandler) Packs(w http.ResponseWriter, r *http.Request) {
	rs := h.currentRules(r.Context())

	packs := make([]pricing.Breakdown, 0, len(h.deps.PackSizes))
	for _, size := range h.deps.PackSizes {
		packs = append(packs, h.breakdown(rs, size))
	}

	respondJSON(w, http.StatusOK, PacksResponse{Packs: packs, Version: rs.version, Stale: rs.stale})
}

// Refresh handles POST /admin/pricing/refresh. Peers are told to refresh too.
func (h *PricingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Invalidator.OnCatalogWritten(r.Context(), "manual refresh"); err != nil {
		utils.RespondWithError(w, http.StatusBadGateway, "Catalog refresh failed: "+err.Error())
		return
	}

	snap := h.deps.Cache.Snapshot()
	respondJSON(w, http.StatusOK, RefreshResponse{Version: snap.Version, TariffCount: len(snap.Data)})
}

// streamEvent is one server-sent pricing update
type streamEvent struct {
	pricing.Breakdown
	Rules     []pricing.Rule `json:"rules"`
	Version   uint64         `json:"version"`
	Loading   bool           `json:"loading"`
	Stale     bool           `json:"stale"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Stream handles GET /api/pricing/stream?pages=N. Each connection holds its
// own subscription and receives a server-sent event whenever the price changes.
func (h *PricingHandler) Stream(w http.ResponseWriter, r *http.Request) {
	pages, err := parsePages(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	sub := h.deps.Cache.Subscribe(r.Context(), pages, 0)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(st tariffcache.State) bool {
		event := streamEvent{
			Breakdown: st.Breakdown,
			Rules:     st.Rules,
			Version:   st.Version,
			Loading:   st.IsLoading,
			Stale:     st.IsStale,
			Timestamp: time.Now().UTC(),
		}
		if st.Err != nil {
			event.Error = st.Err.Error()
		}

		payload, err := sonic.Marshal(event)
		if err != nil {
			logging.Errorf("Failed to encode pricing event: %v", err)
			return false
		}
		if _, err := fmt.Fprintf(w, "event: pricing\ndata: %s\n\n", payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(sub.State()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case st := <-sub.Updates():
			if !send(st) {
				return
			}
		}
	}
}
