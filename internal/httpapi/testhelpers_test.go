package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"correction_pricing/internal/auth"
	"correction_pricing/internal/config"
	"correction_pricing/internal/models"
	"correction_pricing/internal/pricing"
	"correction_pricing/internal/storage"
	"correction_pricing/internal/tariffcache"
)

// memoryTariffStore is an in-memory TariffStore
type memoryTariffStore struct {
	mu      sync.Mutex
	tariffs map[uuid.UUID]models.TariffRecord
	failing error
}

func newMemoryTariffStore(seed ...models.TariffRecord) *memoryTariffStore {
	s := &memoryTariffStore{tariffs: make(map[uuid.UUID]models.TariffRecord)}
	for _, t := range seed {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		s.tariffs[t.ID] = t
	}
	return s
}

func (s *memoryTariffStore) List(ctx context.Context) ([]models.TariffRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing != nil {
		return nil, s.failing
	}
	out := make([]models.TariffRecord, 0, len(s.tariffs))
	for _, t := range s.tariffs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return models.CloneTariffs(out), nil
}

func (s *memoryTariffStore) ListActive(ctx context.Context) ([]models.TariffRecord, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	active := all[:0]
	for _, t := range all {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

func (s *memoryTariffStore) GetByID(ctx context.Context, id uuid.UUID) (*models.TariffRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tariffs[id]
	if !ok {
		return nil, storage.ErrTariffNotFound
	}
	clone := models.CloneTariffs([]models.TariffRecord{t})[0]
	return &clone, nil
}

func (s *memoryTariffStore) Create(ctx context.Context, tariff *models.TariffRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tariff.CreatedAt = time.Now()
	tariff.UpdatedAt = tariff.CreatedAt
	s.tariffs[tariff.ID] = *tariff
	return nil
}

func (s *memoryTariffStore) Update(ctx context.Context, tariff *models.TariffRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tariffs[tariff.ID]; !ok {
		return storage.ErrTariffNotFound
	}
	tariff.UpdatedAt = time.Now()
	s.tariffs[tariff.ID] = *tariff
	return nil
}

func (s *memoryTariffStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tariffs[id]; !ok {
		return storage.ErrTariffNotFound
	}
	delete(s.tariffs, id)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret: []byte("httpapi-test-secret"),
		JWTTTL:    time.Hour,
	}
}

func bearer(t *testing.T, cfg *config.Config, roles ...auth.Role) string {
	t.Helper()
	granted := make([]string, 0, len(roles))
	for _, r := range roles {
		granted = append(granted, r.String())
	}
	claims := auth.AdminClaims{
		AdminID:  uuid.NewString(),
		Email:    "ops@example.com",
		Roles:    granted,
		AuthType: auth.AdminAuthTypeUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.JWTSecret)
	require.NoError(t, err)
	return "Bearer " + token
}

type testServer struct {
	cfg     *config.Config
	store   *memoryTariffStore
	cache   *tariffcache.Cache
	deps    *Dependencies
	handler http.Handler
}

// newTestServer wires a router whose cache reads the in-memory store
func newTestServer(t *testing.T, store *memoryTariffStore) *testServer {
	t.Helper()
	cfg := testConfig()
	cache := tariffcache.New(tariffcache.FetcherFunc(store.ListActive), tariffcache.Config{StaleTime: time.Minute})
	deps := &Dependencies{
		Cache:       cache,
		Invalidator: tariffcache.NewInvalidator(cache, nil),
		Tariffs:     store,
		Quotes:      storage.NewLRUCache[string, pricing.Breakdown](100, 0),
		PackSizes:   []int{50, 150, 300, 500},
	}
	return &testServer{
		cfg:     cfg,
		store:   store,
		cache:   cache,
		deps:    deps,
		handler: NewRouter(cfg, deps),
	}
}

func (s *testServer) do(t *testing.T, method, path, body, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func correctionTariff(priceMinor int64) models.TariffRecord {
	return models.TariffRecord{
		ID:                  uuid.New(),
		Name:                "Correction Standard",
		ServiceType:         "correction",
		UnitPriceMinorUnits: models.PriceMinor(priceMinor),
		Active:              true,
		Order:               1,
	}
}
