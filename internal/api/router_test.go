package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/chorusdesk/chorusdesk/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// healthCheckHandler
// ---------------------------------------------------------------------------

func newHealthDB(t *testing.T, pingOK bool) *sqlx.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if pingOK {
		mock.ExpectPing()
	} else {
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	}
	return sqlx.NewDb(db, "sqlmock")
}

func TestHealthCheckHandler_Healthy(t *testing.T) {
	db := newHealthDB(t, true)

	r := gin.New()
	r.GET("/health", healthCheckHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
}

func TestHealthCheckHandler_Unhealthy(t *testing.T) {
	db := newHealthDB(t, false)

	r := gin.New()
	r.GET("/health", healthCheckHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "unhealthy" {
		t.Errorf("status = %v, want unhealthy", body["status"])
	}
}

// ---------------------------------------------------------------------------
// readinessHandler
// ---------------------------------------------------------------------------

func TestReadinessHandler_Ready(t *testing.T) {
	db := newHealthDB(t, true)

	r := gin.New()
	r.GET("/ready", readinessHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["ready"] != true {
		t.Errorf("ready = %v, want true", body["ready"])
	}
}

func TestReadinessHandler_NotReady(t *testing.T) {
	db := newHealthDB(t, false)

	r := gin.New()
	r.GET("/ready", readinessHandler(db))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["ready"] != false {
		t.Errorf("ready = %v, want false", body["ready"])
	}
}

// ---------------------------------------------------------------------------
// versionHandler
// ---------------------------------------------------------------------------

func TestVersionHandler(t *testing.T) {
	r := gin.New()
	r.GET("/version", versionHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["version"] == nil {
		t.Error("response missing 'version'")
	}
	if body["api_version"] == nil {
		t.Error("response missing 'api_version'")
	}
}

// ---------------------------------------------------------------------------
// NewRouter wiring
// ---------------------------------------------------------------------------

// routerTestConfig is the minimal configuration NewRouter needs: in-memory
// rate limiting, no retention job, no shipping.
func routerTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Security.CORS.AllowedOrigins = []string{"*"}
	cfg.RateLimit.Backend = "memory"
	cfg.RateLimit.RequestsPerMinute = 200
	cfg.RateLimit.BurstSize = 50
	return cfg
}

func TestNewRouter_RegistersPublicRoutes(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	mock.ExpectPing()

	cfg := routerTestConfig()
	router, bg := NewRouter(cfg, sqlx.NewDb(db, "sqlmock"))
	t.Cleanup(bg.Shutdown)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /version = %d, want 200", w.Code)
	}
}

func TestNewRouter_APIRequiresAuth(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := routerTestConfig()
	router, bg := NewRouter(cfg, sqlx.NewDb(db, "sqlmock"))
	t.Cleanup(bg.Shutdown)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/v1/admin/audit without token = %d, want 401", w.Code)
	}
}

// ---------------------------------------------------------------------------
// CORSMiddleware
// ---------------------------------------------------------------------------

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.CORS.AllowedOrigins = []string{"https://example.com"}

	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin = %q, want https://example.com",
			w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSMiddleware_DisallowedOrigin(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.CORS.AllowedOrigins = []string{"https://allowed.com"}

	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.com")
	r.ServeHTTP(w, req)

	// Request passes through but no CORS header set
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("expected no Access-Control-Allow-Origin header for disallowed origin")
	}
}

func TestCORSMiddleware_PreflightOptions(t *testing.T) {
	cfg := &config.Config{}
	cfg.Security.CORS.AllowedOrigins = []string{"*"}

	r := gin.New()
	r.Use(CORSMiddleware(cfg))
	r.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204 for OPTIONS preflight", w.Code)
	}
}

// ---------------------------------------------------------------------------
// LoggerMiddleware
// ---------------------------------------------------------------------------

func TestLoggerMiddleware_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(LoggerMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
