package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type routerTestEnv struct {
	engine *gin.Engine
	cfg    *config.Config

	mu         sync.Mutex
	visitors   int
	failTokens bool
}

type routerResponse struct {
	*httptest.ResponseRecorder
}

type routerEnvelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func corsTestConfig() config.CORSConfig {
	return config.CORSConfig{
		AllowedOrigins:   []string{"https://restomueble.mx"},
		AllowCredentials: true,
		MaxAge:           600,
	}
}

func setupRouterTest(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := &routerTestEnv{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			http.NotFound(w, r)
			return
		}
		env.mu.Lock()
		defer env.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		if env.failTokens {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"message":"unavailable"}`))
			return
		}
		env.visitors++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  fmt.Sprintf("visitor-access-%d", env.visitors),
			"refresh_token": "visitor-refresh",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)

	cfg := config.Defaults()
	cfg.Platform.BaseURL = srv.URL
	cfg.Platform.ClientID = "client-1"
	cfg.Session.Secret = "router-test-secret"
	cfg.Site.BaseURL = "https://www.restomueble.com"
	cfg.CORS = corsTestConfig()

	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PendingLogin{}, &models.ContactSubmission{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	container, err := provider.Assemble(cfg, db, platform.NewClient(cfg.Platform, srv.Client()), nil)
	if err != nil {
		t.Fatalf("assemble container failed: %v", err)
	}
	env.cfg = cfg
	env.engine = SetupRouter(cfg, container)
	return env
}

func (e *routerTestEnv) setFailTokens(fail bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failTokens = fail
}

func (e *routerTestEnv) visitorTokens() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visitors
}

func (e *routerTestEnv) do(method, path string, cookie *http.Cookie) routerResponse {
	return e.doJSON(method, path, "", cookie)
}

func (e *routerTestEnv) doJSON(method, path, body string, cookie *http.Cookie) routerResponse {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	e.engine.ServeHTTP(w, req)
	return routerResponse{w}
}

func (r routerResponse) envelope(t *testing.T) routerEnvelope {
	t.Helper()
	var env routerEnvelope
	if err := json.Unmarshal(r.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not an envelope: %v (%s)", err, r.Body.String())
	}
	return env
}

func (r routerResponse) sessionCookie(t *testing.T) *http.Cookie {
	t.Helper()
	for _, cookie := range r.Result().Cookies() {
		if cookie.Name == "wix_session" {
			return cookie
		}
	}
	t.Fatalf("session cookie not set: %v", r.Header().Values("Set-Cookie"))
	return nil
}

func TestRobotsTxtRoute(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(http.MethodGet, "/robots.txt", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("robots want 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Sitemap: https://www.restomueble.com/sitemap.xml") {
		t.Fatalf("unexpected robots.txt: %s", resp.Body.String())
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatalf("seo routes should not issue sessions")
	}
}

func TestSitemapRouteDegradesToStaticPages(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(http.MethodGet, "/sitemap.xml", nil)
	if resp.Code != http.StatusOK || !strings.HasPrefix(resp.Header().Get("Content-Type"), "application/xml") {
		t.Fatalf("unexpected sitemap response: %d %s", resp.Code, resp.Header().Get("Content-Type"))
	}
	if !strings.Contains(resp.Body.String(), "<loc>https://www.restomueble.com/productos/sillas</loc>") {
		t.Fatalf("sitemap should list collections: %s", resp.Body.String())
	}
}

func TestShippingQuoteRoute(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(http.MethodGet, "/api/v1/public/shipping/quote?postal_code=06600", nil)
	body := resp.envelope(t)
	if body.StatusCode != 0 {
		t.Fatalf("quote should succeed: %s", resp.Body.String())
	}
	var data struct {
		ZoneLabel string `json:"zone_label"`
		CostLabel string `json:"cost_label"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode quote failed: %v", err)
	}
	if data.ZoneLabel != "Ciudad de México" || data.CostLabel != "Gratis" {
		t.Fatalf("unexpected labels: %+v", data)
	}

	bad := env.do(http.MethodGet, "/api/v1/public/shipping/quote?postal_code=123", nil).envelope(t)
	if bad.StatusCode != 400 || bad.Msg != "Ingresa un código postal de 5 dígitos." {
		t.Fatalf("unexpected error envelope: %+v", bad)
	}
}

func TestContactRouteValidates(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.doJSON(http.MethodPost, "/api/v1/public/contact", `{"nombre":"Ana","email":"no-es-correo","mensaje":"hola"}`, nil)
	body := resp.envelope(t)
	if body.StatusCode != 400 || body.Msg != "Email inválido." {
		t.Fatalf("unexpected contact response: %s", resp.Body.String())
	}
}

func TestPublicConfigRoute(t *testing.T) {
	env := setupRouterTest(t)

	body := env.do(http.MethodGet, "/api/v1/public/config", nil).envelope(t)
	var data struct {
		SiteName    string                   `json:"site_name"`
		CookieName  string                   `json:"cookie_name"`
		Collections []map[string]interface{} `json:"collections"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("decode config failed: %v", err)
	}
	if data.SiteName != "Restomueble" || data.CookieName != "wix_session" || len(data.Collections) != 3 {
		t.Fatalf("unexpected config: %+v", data)
	}
}

func TestLoginCallbackWithoutCodeRedirectsHome(t *testing.T) {
	env := setupRouterTest(t)

	resp := env.do(http.MethodGet, "/login/callback?state=abc", nil)
	if resp.Code != http.StatusFound {
		t.Fatalf("callback want 302 got %d", resp.Code)
	}
	if resp.Header().Get("Location") != "https://www.restomueble.com/" {
		t.Fatalf("unexpected redirect: %s", resp.Header().Get("Location"))
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	env := setupRouterTest(t)

	body := env.do(http.MethodGet, "/api/v1/nope", nil).envelope(t)
	if body.StatusCode != 404 {
		t.Fatalf("unknown route want 404 envelope, got %+v", body)
	}
}

func TestHealthzReportsRedisDisabled(t *testing.T) {
	env := setupRouterTest(t)
	resp := env.do(http.MethodGet, "/healthz", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode healthz failed: %v", err)
	}
	if body["status"] != "ok" || body["redis"] != "disabled" {
		t.Fatalf("unexpected healthz body: %+v", body)
	}
}
