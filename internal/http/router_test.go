package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-listing-credits/internal/cache"
	"github.com/tbourn/go-listing-credits/internal/config"
	"github.com/tbourn/go-listing-credits/internal/http/middleware"
	"github.com/tbourn/go-listing-credits/internal/repo"
	"github.com/tbourn/go-listing-credits/internal/services"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := repo.EnsureSettings(context.Background(), db, 5, 3); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      10,
		CORS:           config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:       config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		IdempotencyTTL: time.Hour,
		AdminUserIDs:   []string{"admin1"},
	}
}

func newServer(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	c := cache.New()
	t.Cleanup(c.Close)
	eng := services.NewEngine(db, repo.Store{}, c, services.EngineOptions{})
	r := gin.New()
	RegisterRoutes(r, db, eng, cfg)
	return r, db
}

func send(r http.Handler, method, path, uid string, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set(middleware.HeaderUserID, uid)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newServer(t, baseConfig())

	// /health works
	w := send(r, http.MethodGet, "/health", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	// /metrics is wired
	w = send(r, http.MethodGet, "/metrics", "", "", nil)
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w := send(r, http.MethodGet, "/nope", "", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	if w := send(r, http.MethodPost, "/health", "", "", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// swagger disabled by default
	if w := send(r, http.MethodGet, "/swagger/index.html", "", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be off, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newServer(t, cfg)

	w := send(r, http.MethodGet, "/health", "", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	// routes follow the base path
	if w := send(r, http.MethodGet, "/api/v2/stats/community", "", "", nil); w.Code != http.StatusOK {
		t.Fatalf("GET /api/v2/stats/community = %d", w.Code)
	}
}

func TestRegisterRoutes_ConsumeIdempotentReplay(t *testing.T) {
	r, db := newServer(t, baseConfig())
	if _, err := repo.EnsureProfile(context.Background(), db, "u1"); err != nil {
		t.Fatalf("profile: %v", err)
	}
	hdr := map[string]string{middleware.HeaderIdempotencyKey: "consume-1"}

	first := send(r, http.MethodPost, "/api/v1/listings/consume", "u1", `{"item_id":"it-1"}`, hdr)
	if first.Code != http.StatusOK {
		t.Fatalf("first consume: %d %s", first.Code, first.Body.String())
	}
	if first.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("consume must not be cacheable, got %q", first.Header().Get("Cache-Control"))
	}

	again := send(r, http.MethodPost, "/api/v1/listings/consume", "u1", `{"item_id":"it-1"}`, hdr)
	if again.Code != http.StatusOK || again.Header().Get(middleware.HeaderIdempotencyReplayed) != "true" {
		t.Fatalf("replay: %d replayed=%q", again.Code, again.Header().Get(middleware.HeaderIdempotencyReplayed))
	}
	if again.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs:\n%s\n%s", first.Body.String(), again.Body.String())
	}

	// exactly one debit happened
	bal, err := repo.GetCommunityPotBalance(context.Background(), db)
	if err != nil {
		t.Fatalf("pot: %v", err)
	}
	if bal != 2 {
		t.Fatalf("pot balance = %d, want 2", bal)
	}
}

func TestRegisterRoutes_NewUserFreeListing(t *testing.T) {
	r, db := newServer(t, baseConfig())

	w := send(r, http.MethodGet, "/api/v1/eligibility", "newcomer", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("eligibility = %d %s", w.Code, w.Body.String())
	}
	var elig map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &elig); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if elig["can_create"] != true || elig["source"] != "community_pot" {
		t.Fatalf("unexpected eligibility: %s", w.Body.String())
	}

	w = send(r, http.MethodPost, "/api/v1/listings/consume", "newcomer", `{}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("consume = %d %s", w.Code, w.Body.String())
	}
	p, err := repo.GetProfile(context.Background(), db, "newcomer")
	if err != nil || p.DailyListingsUsed != 1 {
		t.Fatalf("profile after consume: %+v, %v", p, err)
	}
}

func TestRegisterRoutes_AccessControl(t *testing.T) {
	r, _ := newServer(t, baseConfig())

	if w := send(r, http.MethodPost, "/api/v1/listings/consume", "", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous consume = %d", w.Code)
	}
	if w := send(r, http.MethodPut, "/api/v1/admin/settings", "u1", `{"daily_free_listings":1}`, nil); w.Code != http.StatusForbidden {
		t.Fatalf("non-admin settings = %d", w.Code)
	}
	w := send(r, http.MethodPut, "/api/v1/admin/settings", "admin1", `{"daily_free_listings":1}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("admin settings = %d %s", w.Code, w.Body.String())
	}
	var st map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil || st["daily_free_listings"].(float64) != 1 {
		t.Fatalf("settings body: %s (%v)", w.Body.String(), err)
	}

	// anonymous eligibility is a 200 deny
	w = send(r, http.MethodGet, "/api/v1/eligibility", "", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous eligibility = %d", w.Code)
	}
}

func TestRegisterRoutes_GzipSkipsEventStream(t *testing.T) {
	r, _ := newServer(t, baseConfig())

	w := send(r, http.MethodGet, "/api/v1/stats/community", "", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip on JSON routes, got %q", w.Header().Get("Content-Encoding"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/events", nil).WithContext(ctx)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	cancel() // the stream writes its ready event and returns
	r.ServeHTTP(rec, req)
	if rec.Header().Get("Content-Encoding") == "gzip" {
		t.Fatalf("event stream must not be compressed")
	}
}

func TestIdempotencyStore_LookupSave(t *testing.T) {
	db := newTestDB(t)
	s := NewIdempotencyStore(db, 0)
	if s.TTL != 24*time.Hour {
		t.Fatalf("default ttl = %v", s.TTL)
	}
	ctx := context.Background()
	now := time.Now().UTC()

	if _, _, found, err := s.Lookup(ctx, "u1", "POST /x", "k", now); err != nil || found {
		t.Fatalf("miss: found=%v err=%v", found, err)
	}
	if err := s.Save(ctx, "u1", "POST /x", "k", http.StatusCreated, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, "u1", "POST /x", "k", http.StatusOK, []byte(`{"a":2}`)); err != nil {
		t.Fatalf("duplicate save must be ignored: %v", err)
	}
	status, body, found, err := s.Lookup(ctx, "u1", "POST /x", "k", now)
	if err != nil || !found || status != http.StatusCreated || string(body) != `{"a":1}` {
		t.Fatalf("hit: %d %s %v %v", status, body, found, err)
	}
	if _, _, found, _ := s.Lookup(ctx, "u1", "POST /x", "k", now.Add(25*time.Hour)); found {
		t.Fatalf("expired record must not be found")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix_joinPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}

	if got := joinPath("", "/cache/events"); got != "/cache/events" {
		t.Fatalf("joinPath root: %q", got)
	}
	if got := joinPath("/api/v1", "/cache/events"); got != "/api/v1/cache/events" {
		t.Fatalf("joinPath base: %q", got)
	}
}
