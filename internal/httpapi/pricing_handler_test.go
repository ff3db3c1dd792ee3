package httpapi

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"correction_pricing/internal/models"
)

func TestQuote_UsesCatalogRules(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore(correctionTariff(150)))

	rec := srv.do(t, http.MethodGet, "/api/pricing/quote?pages=150", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuoteResponse
	decode(t, rec, &resp)
	assert.Equal(t, 150, resp.PageCount)
	assert.Equal(t, 10, resp.FreePages)
	assert.InDelta(t, 210.0, resp.TotalAmount, 0.001)
	assert.Equal(t, uint64(1), resp.Version)
	assert.False(t, resp.Stale)

	_, cached := srv.deps.Quotes.Get("1:150")
	assert.True(t, cached)
}

func TestQuote_InvalidPages(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore())

	for _, path := range []string{
		"/api/pricing/quote",
		"/api/pricing/quote?pages=abc",
		"/api/pricing/quote?pages=-3",
	} {
		rec := srv.do(t, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestQuote_FallsBackToDefaultsWhenCatalogUnavailable(t *testing.T) {
	store := newMemoryTariffStore(correctionTariff(150))
	store.failing = errors.New("connection refused")
	srv := newTestServer(t, store)

	rec := srv.do(t, http.MethodGet, "/api/pricing/quote?pages=150", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuoteResponse
	decode(t, rec, &resp)
	assert.InDelta(t, 280.0, resp.TotalAmount, 0.001)
	assert.True(t, resp.Stale)
	assert.Zero(t, srv.deps.Quotes.Len())
}

func TestQuote_ZeroPages(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore(correctionTariff(150)))

	rec := srv.do(t, http.MethodGet, "/api/pricing/quote?pages=0", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp QuoteResponse
	decode(t, rec, &resp)
	assert.Zero(t, resp.TotalAmount)
	assert.Zero(t, resp.AveragePricePerPage)
}

func TestRules_ReportsSource(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore())

	rec := srv.do(t, http.MethodGet, "/api/pricing/rules", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RulesResponse
	decode(t, rec, &resp)
	assert.Equal(t, RulesFromDefault, resp.Source)
	assert.Len(t, resp.Rules, 3)
	assert.False(t, resp.Stale)

	srv = newTestServer(t, newMemoryTariffStore(correctionTariff(250)))
	rec = srv.do(t, http.MethodGet, "/api/pricing/rules", "", "")
	decode(t, rec, &resp)
	assert.Equal(t, RulesFromCatalog, resp.Source)
	assert.InDelta(t, 2.5, resp.Rules[1].UnitPricePerPage, 0.001)
	assert.True(t, strings.Contains(rec.Body.String(), `"threshold_pages":null`))
}

func TestPacks(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore())

	rec := srv.do(t, http.MethodGet, "/api/pricing/packs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PacksResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Packs, 4)
	assert.Equal(t, 50, resp.Packs[0].PageCount)
	assert.InDelta(t, 80.0, resp.Packs[0].TotalAmount, 0.001)
	assert.Equal(t, 500, resp.Packs[3].PageCount)
	assert.InDelta(t, 780.0, resp.Packs[3].TotalAmount, 0.001)
}

func TestTariffs_UnavailableBeforeFirstLoad(t *testing.T) {
	store := newMemoryTariffStore(correctionTariff(150))
	store.failing = errors.New("connection refused")
	srv := newTestServer(t, store)

	rec := srv.do(t, http.MethodGet, "/api/tariffs", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Once loaded, a later failure serves the last-known-good catalog.
	store.failing = nil
	rec = srv.do(t, http.MethodGet, "/api/tariffs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	store.failing = errors.New("connection refused")
	srv.cache.Invalidate()
	rec = srv.do(t, http.MethodGet, "/api/tariffs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Catalog-Stale"))

	var resp struct {
		Tariffs []map[string]interface{} `json:"tariffs"`
	}
	decode(t, rec, &resp)
	assert.Len(t, resp.Tariffs, 1)
}

func TestRefresh_RequiresAdmin(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore(correctionTariff(150)))

	rec := srv.do(t, http.MethodPost, "/admin/pricing/refresh", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/admin/pricing/refresh", "", bearer(t, srv.cfg, "viewer"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodPost, "/admin/pricing/refresh", "", bearer(t, srv.cfg, "admin"))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RefreshResponse
	decode(t, rec, &resp)
	assert.Equal(t, uint64(1), resp.Version)
	assert.Equal(t, 1, resp.TariffCount)
}

func TestRefresh_FailureIsBadGateway(t *testing.T) {
	store := newMemoryTariffStore()
	store.failing = errors.New("connection refused")
	srv := newTestServer(t, store)

	rec := srv.do(t, http.MethodPost, "/admin/pricing/refresh", "", bearer(t, srv.cfg, "admin"))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestHealth_ReportsCatalogState(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore(correctionTariff(150)))

	rec := srv.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	decode(t, rec, &status)
	assert.Equal(t, "not loaded", status["catalog"])

	_, err := srv.cache.Read(context.Background(), time.Minute)
	require.NoError(t, err)

	rec = srv.do(t, http.MethodGet, "/health", "", "")
	decode(t, rec, &status)
	assert.Equal(t, "ok", status["catalog"])
}

func TestMetricsAreNotServedOverHTTP(t *testing.T) {
	srv := newTestServer(t, newMemoryTariffStore(correctionTariff(150)))

	rec := srv.do(t, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStream_PushesUpdatesAfterInvalidation(t *testing.T) {
	store := newMemoryTariffStore(correctionTariff(200))
	srv := newTestServer(t, store)
	ts := httptest.NewServer(srv.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/pricing/stream?pages=20", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() streamEvent {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var ev streamEvent
				require.NoError(t, sonic.UnmarshalString(data, &ev))
				return ev
			}
		}
	}

	ev := nextEvent()
	for ev.Version != 1 {
		ev = nextEvent()
	}
	assert.InDelta(t, 20.0, ev.TotalAmount, 0.001)

	store.mu.Lock()
	for id, tariff := range store.tariffs {
		tariff.UnitPriceMinorUnits = models.PriceMinor(300)
		store.tariffs[id] = tariff
	}
	store.mu.Unlock()
	require.NoError(t, srv.deps.Invalidator.InvalidatePublic(ctx))

	for ev.Version != 2 {
		ev = nextEvent()
	}
	assert.InDelta(t, 30.0, ev.TotalAmount, 0.001)
	assert.False(t, ev.Stale)
}
