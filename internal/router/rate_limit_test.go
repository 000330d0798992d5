package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/restomueble/storefront/internal/config"

	"github.com/gin-gonic/gin"
)

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/public/newsletter", strings.NewReader(`{"email":" Ana@Example.com "}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("email")(c)
	if key != "ana@example.com|1.2.3.4" {
		t.Fatalf("key want ana@example.com|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), "Ana@Example.com") {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByIPAndJSONFieldFallsBackToIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/public/newsletter", strings.NewReader(`not-json`))
	c.Request.RemoteAddr = "1.2.3.4:5678"

	if key := KeyByIPAndJSONField("email")(c); key != "1.2.3.4" {
		t.Fatalf("invalid body should fall back to ip, got %s", key)
	}
}

func TestRateLimitMiddlewareWithoutClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimitMiddleware(nil, RateLimitRule{Name: "contact", WindowSeconds: 60, MaxRequests: 1}, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("requests should pass without redis, got %s", w.Body.String())
		}
	}
}

func TestNewRateLimitRule(t *testing.T) {
	rule := NewRateLimitRule("contact", config.RateLimitConfig{WindowSeconds: 600, MaxRequests: 5})
	if rule.Name != "contact" || !rule.enabled() {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if NewRateLimitRule("login", config.RateLimitConfig{WindowSeconds: 60}).enabled() {
		t.Fatalf("rule without max requests should be disabled")
	}
}

func TestNewsletterRateLimitAlsoKeysByIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	bindings := newsletterRateLimitBindings(config.RateLimitConfig{WindowSeconds: 60, MaxRequests: 3})
	if len(bindings) != 2 || bindings[0].rule.Name == bindings[1].rule.Name {
		t.Fatalf("newsletter should carry two independently named limits: %+v", bindings)
	}

	keysFor := func(email string) []string {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/public/newsletter", strings.NewReader(`{"email":"`+email+`"}`))
		c.Request.Header.Set("Content-Type", "application/json")
		c.Request.RemoteAddr = "1.2.3.4:5678"
		keys := make([]string, 0, len(bindings))
		for _, binding := range bindings {
			keys = append(keys, binding.keyFunc(c))
		}
		return keys
	}
	first := keysFor("ana@example.com")
	second := keysFor("otra@example.com")
	if first[0] != "1.2.3.4" || first[0] != second[0] {
		t.Fatalf("ip limit should ignore the email: %v %v", first, second)
	}
	if first[1] == second[1] {
		t.Fatalf("email limit should differ per address: %v %v", first, second)
	}
	if bindings[0].rule.MaxRequests != 3 || bindings[0].rule.WindowSeconds != 60 {
		t.Fatalf("limits should come from config: %+v", bindings[0].rule)
	}
}
