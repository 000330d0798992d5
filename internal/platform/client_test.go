package platform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/restomueble/storefront/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*config.PlatformConfig)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := config.PlatformConfig{
		BaseURL:      server.URL,
		AuthURL:      server.URL + "/oauth2/authorize",
		ClientID:     "client-1",
		StoresAppID:  "stores-app",
		MediaBaseURL: "https://static.wixstatic.com/media/",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return NewClient(cfg, server.Client())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func visitorTokenHandler(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  "visitor-access",
		"refresh_token": "visitor-refresh",
		"expires_in":    3600,
	})
}

func TestQueryProductsNormalizesAndReusesServerToken(t *testing.T) {
	var tokenCalls int32
	var lastFilter string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			atomic.AddInt32(&tokenCalls, 1)
			visitorTokenHandler(w)
		case "/stores/v1/products/query":
			if r.Header.Get("Authorization") != "visitor-access" {
				t.Errorf("unexpected authorization header: %q", r.Header.Get("Authorization"))
			}
			var body productQueryRequest
			_ = json.NewDecoder(r.Body).Decode(&body)
			lastFilter = body.Query.Filter
			if !body.IncludeVariants {
				t.Errorf("variants should be requested")
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"products": []interface{}{
					map[string]interface{}{
						"id":            "p1",
						"name":          "Silla Bistró",
						"slug":          "silla-bistró",
						"priceData":     map[string]interface{}{"currency": "MXN", "price": 1299.5, "formatted": map[string]string{"price": "$1,299.50"}},
						"media":         map[string]interface{}{"items": []interface{}{map[string]interface{}{"image": map[string]string{"url": "https://static.wixstatic.com/media/a.jpg"}}}},
						"collectionIds": []string{"col-1"},
						"productOptions": []interface{}{
							map[string]interface{}{"name": "Color", "choices": []interface{}{map[string]string{"value": "Rojo"}, map[string]string{"value": ""}}},
						},
						"variants": []interface{}{
							map[string]interface{}{"id": "v1", "choices": map[string]string{"Color": "Rojo"}, "stock": map[string]bool{"inStock": true}},
						},
					},
					map[string]interface{}{"name": "sin id"},
				},
			})
		default:
			http.NotFound(w, r)
		}
	})

	for i := 0; i < 2; i++ {
		products, err := client.QueryProducts(context.Background(), ProductQuery{Slug: "silla-bistró", Limit: 1})
		if err != nil {
			t.Fatalf("query products failed: %v", err)
		}
		if len(products) != 1 {
			t.Fatalf("record without id should be dropped, got %d", len(products))
		}
		p := products[0]
		if p.Price.String() != "1299.50" || p.FormattedPrice != "$1,299.50" || p.Currency != "MXN" {
			t.Fatalf("unexpected price fields: %+v", p)
		}
		if p.MainImage != "https://static.wixstatic.com/media/a.jpg" {
			t.Fatalf("main image should fall back to gallery, got %q", p.MainImage)
		}
		if len(p.Options) != 1 || len(p.Options[0].Choices) != 1 || len(p.Variants) != 1 {
			t.Fatalf("unexpected options or variants: %+v %+v", p.Options, p.Variants)
		}
		if !p.InStock || !p.InCollection("col-1") {
			t.Fatalf("unexpected stock or collection: %+v", p)
		}
	}
	if !strings.Contains(lastFilter, `"slug":"silla-bistró"`) {
		t.Fatalf("slug filter missing: %s", lastFilter)
	}
	if atomic.LoadInt32(&tokenCalls) != 1 {
		t.Fatalf("server visitor token should be reused, minted %d times", tokenCalls)
	}
}

func TestAPIErrorClassification(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ecom/v1/carts/current":
			writeJSON(w, http.StatusNotFound, map[string]interface{}{
				"message": "Cart not found",
				"details": map[string]interface{}{"applicationError": map[string]string{"code": "OWNED_CART_NOT_FOUND"}},
			})
		case "/contacts/v4/contacts":
			writeJSON(w, http.StatusConflict, map[string]interface{}{
				"message": "contact already exists",
				"details": map[string]interface{}{"applicationError": map[string]string{"code": "DUPLICATE_FOUND"}},
			})
		case "/wix-data/v2/items/query":
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"message": "collection does not exist",
				"details": map[string]interface{}{"applicationError": map[string]string{"code": "WDE0025"}},
			})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "boom")
		}
	}, func(cfg *config.PlatformConfig) {
		cfg.APIKey = "api-key"
		cfg.SiteID = "site-1"
	})

	_, err := client.GetCurrentCart(context.Background(), "visitor-access")
	if !IsCartNotFound(err) || !IsNotFound(err) || !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("expected cart not found classification, got %v", err)
	}

	_, err = client.CreateContact(context.Background(), ContactInfo{Emails: []ContactEmail{{Tag: "MAIN", Email: "a@example.com"}}})
	if !IsDuplicate(err) {
		t.Fatalf("expected duplicate classification, got %v", err)
	}

	_, err = client.QueryDataItems(context.Background(), "LandingsSEO", DataQuery{})
	if !IsNotFound(err) {
		t.Fatalf("missing collection should be classified as not found, got %v", err)
	}

	err = client.RemoveLineItems(context.Background(), "visitor-access", []string{"x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "boom" {
		t.Fatalf("expected raw api error, got %v", err)
	}
	if IsNotFound(err) || IsDuplicate(err) {
		t.Fatalf("server error should not be classified as not found or duplicate")
	}
}

func TestCreateContactRequiresAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("no request expected, got %s", r.URL.Path)
	})
	_, err := client.CreateContact(context.Background(), ContactInfo{})
	if !errors.Is(err, ErrConfigInvalid) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestCreateContactSendsAPIKeyHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "api-key" || r.Header.Get("wix-site-id") != "site-1" {
			t.Errorf("missing api key headers: %v", r.Header)
		}
		var body map[string]map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		items, _ := body["info"]["extendedFields"].(map[string]interface{})["items"].(map[string]interface{})
		if items["custom.mensaje"] != "Hola" {
			t.Errorf("extended fields missing: %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"contact": map[string]string{"id": "contact-1"}})
	}, func(cfg *config.PlatformConfig) {
		cfg.APIKey = "api-key"
		cfg.SiteID = "site-1"
	})
	id, err := client.CreateContact(context.Background(), ContactInfo{
		Name:           &ContactName{First: "Ana"},
		Emails:         []ContactEmail{{Tag: "MAIN", Email: "ana@example.com"}},
		ExtendedFields: map[string]string{"custom.mensaje": "Hola"},
	})
	if err != nil || id != "contact-1" {
		t.Fatalf("create contact failed: id=%s err=%v", id, err)
	}
}

func TestCartRoundTrip(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ecom/v1/carts/current/add-to-cart":
			var body struct {
				LineItems []LineItemInput `json:"lineItems"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if len(body.LineItems) != 1 || body.LineItems[0].CatalogReference.Options["variantId"] != "v1" {
				t.Errorf("unexpected line items: %+v", body.LineItems)
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"cart": map[string]interface{}{
					"id":       "cart-1",
					"currency": "MXN",
					"lineItems": []interface{}{
						map[string]interface{}{
							"id":               "li-1",
							"quantity":         2,
							"catalogReference": map[string]interface{}{"catalogItemId": "p1", "options": map[string]string{"variantId": "v1"}},
							"productName":      map[string]string{"original": "Silla"},
							"price":            map[string]string{"amount": "100", "formattedAmount": "$100.00"},
							"image":            "wix:image://v1/abc~mv2.jpg/silla.jpg#originWidth=10",
						},
					},
				},
			})
		case "/ecom/v1/carts/current/create-checkout":
			writeJSON(w, http.StatusOK, map[string]string{"checkoutId": "chk-1"})
		case "/redirect-session/v1/redirect-session":
			writeJSON(w, http.StatusOK, map[string]interface{}{"redirectSession": map[string]string{"id": "rs", "fullUrl": ""}})
		default:
			http.NotFound(w, r)
		}
	})

	cart, err := client.AddToCurrentCart(context.Background(), "tok", []LineItemInput{{
		CatalogReference: CatalogReference{CatalogItemID: "p1", AppID: "stores-app", Options: map[string]interface{}{"variantId": "v1"}},
		Quantity:         2,
	}})
	if err != nil {
		t.Fatalf("add to cart failed: %v", err)
	}
	if len(cart.LineItems) != 1 || cart.LineItems[0].VariantID != "v1" || cart.LineItems[0].Image != "https://static.wixstatic.com/media/abc~mv2.jpg" {
		t.Fatalf("unexpected cart: %+v", cart)
	}
	if cart.HasSubtotal {
		t.Fatalf("cart without subtotal should report HasSubtotal=false")
	}

	checkoutID, err := client.CreateCheckout(context.Background(), "tok")
	if err != nil || checkoutID != "chk-1" {
		t.Fatalf("create checkout failed: %s %v", checkoutID, err)
	}
	if _, err := client.CreateCheckoutRedirect(context.Background(), "tok", checkoutID, CheckoutCallbacks{}); !errors.Is(err, ErrResponseInvalid) {
		t.Fatalf("empty redirect url should be invalid, got %v", err)
	}
	if _, err := client.GetCurrentCart(context.Background(), ""); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("missing token should fail fast, got %v", err)
	}
}

func TestExchangeCodeSendsVerifier(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form failed: %v", err)
		}
		if r.PostForm.Get("code") != "code-1" || r.PostForm.Get("code_verifier") != "verifier-1" || r.PostForm.Get("client_id") != "client-1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "member-access",
			"refresh_token": "member-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	tokens, err := client.ExchangeCode(context.Background(), "https://restomueble.mx/login/callback", "code-1", "verifier-1")
	if err != nil {
		t.Fatalf("exchange failed: %v", err)
	}
	if tokens.AccessToken != "member-access" || tokens.RefreshToken != "member-refresh" || tokens.ExpiresAt.IsZero() {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}

	_, err = client.ExchangeCode(context.Background(), "https://restomueble.mx/login/callback", "bad", "verifier-1")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("bad code should fail, got %v", err)
	}
}

func TestResolveMediaURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "wix:image://v1/abc~mv2.jpg/silla.jpg#originWidth=800&originHeight=600", want: "https://static.wixstatic.com/media/abc~mv2.jpg"},
		{in: "https://cdn.example.com/a.jpg", want: "https://cdn.example.com/a.jpg"},
		{in: "wix:image://v1/", want: ""},
		{in: "ftp://nope", want: ""},
		{in: "", want: ""},
	}
	for _, tc := range cases {
		if got := ResolveMediaURL("", tc.in); got != tc.want {
			t.Fatalf("media url %q: want %q got %q", tc.in, tc.want, got)
		}
	}
}

func TestDataItemFieldLookup(t *testing.T) {
	item := DataItem{Fields: map[string]interface{}{
		"titulo": "",
		"data":   map[string]interface{}{"titulo": "Tienda CDMX", "slug": "tienda-cdmx"},
	}}
	if item.String("titulo") != "Tienda CDMX" {
		t.Fatalf("nested field should be used when top level is empty")
	}
	if item.Content()["slug"] != "tienda-cdmx" {
		t.Fatalf("content should prefer nested data")
	}
	flat := DataItem{Fields: map[string]interface{}{"titulo": "Inicio"}}
	if flat.String("titulo") != "Inicio" || flat.Content()["titulo"] != "Inicio" {
		t.Fatalf("flat fields should be read directly")
	}
}
