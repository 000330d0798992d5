package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Session.CookieName != "wix_session" {
		t.Fatalf("unexpected cookie name: %s", cfg.Session.CookieName)
	}
	if cfg.Session.MaxAge() != 30*24*time.Hour {
		t.Fatalf("unexpected cookie max age: %s", cfg.Session.MaxAge())
	}
	if cfg.Platform.StoresAppID != "1380b703-ce81-ff05-f115-39571d94dfcd" {
		t.Fatalf("unexpected stores app id: %s", cfg.Platform.StoresAppID)
	}
	if cfg.Platform.MediaBaseURL != "https://static.wixstatic.com/media/" {
		t.Fatalf("unexpected media base url: %s", cfg.Platform.MediaBaseURL)
	}
	if cfg.Revalidate.ProductSeconds != 60 || cfg.Revalidate.BlogSeconds != 300 || cfg.Revalidate.LandingSeconds != 3600 {
		t.Fatalf("unexpected revalidate windows: %+v", cfg.Revalidate)
	}
	if len(cfg.Catalog.Collections) != 3 {
		t.Fatalf("expected 3 default collections, got %d", len(cfg.Catalog.Collections))
	}
	if cfg.Catalog.Collections[0].Slug != "sillas" || cfg.Catalog.Collections[0].PlatformID == "" {
		t.Fatalf("unexpected first collection: %+v", cfg.Catalog.Collections[0])
	}
}

func TestSiteURL(t *testing.T) {
	site := SiteConfig{BaseURL: "https://restomueble.mx"}
	if got := site.URL("/gracias"); got != "https://restomueble.mx/gracias" {
		t.Fatalf("unexpected url: %s", got)
	}
	if got := site.URL("cuenta"); got != "https://restomueble.mx/cuenta" {
		t.Fatalf("unexpected url without slash: %s", got)
	}
	if got := site.URL(""); got != "https://restomueble.mx" {
		t.Fatalf("unexpected base url: %s", got)
	}
}

func TestPlatformTimeoutFallback(t *testing.T) {
	if got := (PlatformConfig{}).Timeout(); got != 12*time.Second {
		t.Fatalf("unexpected default timeout: %s", got)
	}
	if got := (PlatformConfig{TimeoutSeconds: 3}).Timeout(); got != 3*time.Second {
		t.Fatalf("unexpected configured timeout: %s", got)
	}
}
