package service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// fakePlatform 测试用的平台假服务，按路径分发并记录请求
type fakePlatform struct {
	mu sync.Mutex

	products    []map[string]interface{}
	posts       []map[string]interface{}
	dataItems   map[string][]map[string]interface{} // 不存在的集合返回 WDE0025
	cartItems   []map[string]interface{}
	orders      []map[string]interface{}
	member      map[string]interface{}
	cartMissing bool

	productFailures int
	addStatus       int
	removeStatus    int
	checkoutStatus  int
	redirectStatus  int
	contactStatus   int
	refreshStatus   int

	productQueries []map[string]interface{}
	addBodies      []map[string]interface{}
	redirectBodies []map[string]interface{}
	contactBodies  []map[string]interface{}
	tokenForms     []url.Values
	revoked        []string
	visitorTokens  int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{dataItems: map[string][]map[string]interface{}{}}
}

func (f *fakePlatform) client(t *testing.T) *platform.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(server.Close)
	return platform.NewClient(config.PlatformConfig{
		BaseURL:      server.URL,
		AuthURL:      server.URL + "/oauth2/authorize",
		ClientID:     "client-1",
		APIKey:       "api-key",
		SiteID:       "site-1",
		StoresAppID:  "stores-app",
		MediaBaseURL: "https://static.wixstatic.com/media/",
	}, server.Client())
}

func writeFakeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeFakeError(w http.ResponseWriter, status int, code, message string) {
	writeFakeJSON(w, status, map[string]interface{}{
		"message": message,
		"details": map[string]interface{}{"applicationError": map[string]string{"code": code}},
	})
}

func decodeBody(r *http.Request) map[string]interface{} {
	body := map[string]interface{}{}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)
	return body
}

func (f *fakePlatform) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.URL.Path == "/oauth2/token":
		f.serveToken(w, r)
	case r.URL.Path == "/oauth2/revoke":
		body := decodeBody(r)
		token, _ := body["token"].(string)
		f.revoked = append(f.revoked, token)
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{})
	case r.URL.Path == "/stores/v1/products/query":
		f.serveProducts(w, r)
	case r.URL.Path == "/blog/v3/posts/query":
		f.servePosts(w, r)
	case r.URL.Path == "/wix-data/v2/items/query":
		f.serveDataItems(w, r)
	case r.URL.Path == "/ecom/v1/carts/current":
		if f.cartMissing {
			writeFakeError(w, http.StatusNotFound, "OWNED_CART_NOT_FOUND", "Cart not found")
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{"cart": f.cartBody()})
	case r.URL.Path == "/ecom/v1/carts/current/add-to-cart":
		body := decodeBody(r)
		f.addBodies = append(f.addBodies, body)
		if f.addStatus != 0 {
			writeFakeError(w, f.addStatus, "", "add failed")
			return
		}
		f.cartMissing = false
		f.cartItems = append(f.cartItems, map[string]interface{}{
			"id":          fmt.Sprintf("line-%d", len(f.cartItems)+1),
			"quantity":    2,
			"price":       map[string]string{"amount": "100.00"},
			"productName": map[string]string{"original": "Silla"},
		})
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{"cart": f.cartBody()})
	case r.URL.Path == "/ecom/v1/carts/current/remove-line-items":
		if f.removeStatus != 0 {
			writeFakeError(w, f.removeStatus, "", "remove failed")
			return
		}
		f.cartItems = nil
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{"cart": f.cartBody()})
	case r.URL.Path == "/ecom/v1/carts/current/create-checkout":
		if f.checkoutStatus != 0 {
			writeFakeError(w, f.checkoutStatus, "", "checkout failed")
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]string{"checkoutId": "checkout-1"})
	case r.URL.Path == "/redirect-session/v1/redirect-session":
		body := decodeBody(r)
		f.redirectBodies = append(f.redirectBodies, body)
		if f.redirectStatus != 0 {
			writeFakeError(w, f.redirectStatus, "", "redirect failed")
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{
			"redirectSession": map[string]string{"id": "rs-1", "fullUrl": "https://checkout.example.com/rs-1"},
		})
	case r.URL.Path == "/contacts/v4/contacts":
		f.contactBodies = append(f.contactBodies, decodeBody(r))
		switch f.contactStatus {
		case 0:
			writeFakeJSON(w, http.StatusOK, map[string]interface{}{"contact": map[string]string{"id": "contact-1"}})
		case http.StatusConflict:
			writeFakeError(w, http.StatusConflict, "DUPLICATE_FOUND", "contact already exists")
		default:
			writeFakeError(w, f.contactStatus, "", "crm unavailable")
		}
	case r.URL.Path == "/members/v1/members/my":
		if f.member == nil {
			writeFakeError(w, http.StatusUnauthorized, "", "not a member")
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{"member": f.member})
	case r.URL.Path == "/ecom/v1/orders/search":
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{"orders": f.orders})
	case strings.HasPrefix(r.URL.Path, "/ecom/v1/orders/"):
		id := strings.TrimPrefix(r.URL.Path, "/ecom/v1/orders/")
		for _, order := range f.orders {
			if order["id"] == id {
				writeFakeJSON(w, http.StatusOK, map[string]interface{}{"order": order})
				return
			}
		}
		writeFakeError(w, http.StatusNotFound, "NOT_FOUND", "order not found")
	default:
		http.NotFound(w, r)
	}
}

func (f *fakePlatform) serveToken(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		_ = r.ParseForm()
		f.tokenForms = append(f.tokenForms, r.PostForm)
		if r.PostForm.Get("grant_type") == "refresh_token" && f.refreshStatus != 0 {
			writeFakeJSON(w, f.refreshStatus, map[string]string{"error": "invalid_grant"})
			return
		}
		writeFakeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "member-access-" + r.PostForm.Get("grant_type"),
			"refresh_token": "member-refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
		return
	}
	f.visitorTokens++
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  fmt.Sprintf("visitor-access-%d", f.visitorTokens),
		"refresh_token": "visitor-refresh",
		"expires_in":    3600,
	})
}

func (f *fakePlatform) serveProducts(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	query, _ := body["query"].(map[string]interface{})
	filter := map[string]interface{}{}
	if raw, ok := query["filter"].(string); ok && raw != "" {
		_ = json.Unmarshal([]byte(raw), &filter)
	}
	f.productQueries = append(f.productQueries, filter)
	if f.productFailures > 0 {
		f.productFailures--
		writeFakeError(w, http.StatusInternalServerError, "", "catalog down")
		return
	}
	out := []map[string]interface{}{}
	for _, p := range f.products {
		if v, ok := filter["slug"]; ok && p["slug"] != v {
			continue
		}
		if v, ok := filter["id"]; ok && p["id"] != v {
			continue
		}
		out = append(out, p)
	}
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{"products": out, "totalResults": len(out)})
}

func (f *fakePlatform) servePosts(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	query, _ := body["query"].(map[string]interface{})
	filter, _ := query["filter"].(map[string]interface{})
	out := []map[string]interface{}{}
	for _, p := range f.posts {
		if v, ok := filter["slug"]; ok && p["slug"] != v {
			continue
		}
		out = append(out, p)
	}
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{"posts": out})
}

func (f *fakePlatform) serveDataItems(w http.ResponseWriter, r *http.Request) {
	body := decodeBody(r)
	collection, _ := body["dataCollectionId"].(string)
	items, ok := f.dataItems[collection]
	if !ok {
		writeFakeError(w, http.StatusBadRequest, "WDE0025", "collection does not exist")
		return
	}
	query, _ := body["query"].(map[string]interface{})
	filter, _ := query["filter"].(map[string]interface{})
	out := []map[string]interface{}{}
	for _, item := range items {
		matched := true
		for field, cond := range filter {
			eq, _ := cond.(map[string]interface{})["$eq"]
			if item[field] != eq {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, map[string]interface{}{"id": item["slug"], "data": item})
		}
	}
	writeFakeJSON(w, http.StatusOK, map[string]interface{}{"dataItems": out})
}

func (f *fakePlatform) cartBody() map[string]interface{} {
	items := f.cartItems
	if items == nil {
		items = []map[string]interface{}{}
	}
	return map[string]interface{}{"id": "cart-1", "currency": "MXN", "lineItems": items}
}

func fakeProduct(id, name, productSlug string, collectionIDs ...string) map[string]interface{} {
	return map[string]interface{}{
		"id":            id,
		"name":          name,
		"slug":          productSlug,
		"priceData":     map[string]interface{}{"currency": "MXN", "price": 1500, "formatted": map[string]string{"price": "$1,500.00"}},
		"collectionIds": collectionIDs,
	}
}

func fakeProductWithVariants(id, productSlug string) map[string]interface{} {
	p := fakeProduct(id, "Silla Bistró", productSlug)
	p["productOptions"] = []interface{}{
		map[string]interface{}{"name": "Color", "choices": []interface{}{
			map[string]string{"value": "Rojo"},
			map[string]string{"value": "Azul"},
		}},
	}
	p["variants"] = []interface{}{
		map[string]interface{}{"id": "v-rojo", "choices": map[string]string{"Color": "Rojo"}, "stock": map[string]bool{"inStock": true}},
		map[string]interface{}{"id": "v-azul", "choices": map[string]string{"Color": "Azul"}, "stock": map[string]bool{"inStock": false}},
	}
	return p
}

func testRevalidateConfig() config.RevalidateConfig {
	return config.RevalidateConfig{ProductSeconds: 60, ListingSeconds: 60, BlogSeconds: 60, LandingSeconds: 60}
}

func testCatalogConfig() config.CatalogConfig {
	return config.CatalogConfig{Collections: []config.CollectionConfig{
		{Slug: "sillas", Name: "Sillas", PlatformID: "col-sillas"},
		{Slug: "mesas", Name: "Mesas", PlatformID: "col-mesas"},
	}}
}

func testSiteConfig() config.SiteConfig {
	return config.SiteConfig{
		Name:         "Restomueble",
		BaseURL:      "https://www.restomueble.com",
		ThankYouPath: "/gracias",
		AccountPath:  "/cuenta",
		CallbackPath: "/login/callback",
	}
}

// testServices 组装一套基于假平台的服务
type testServices struct {
	fake    *fakePlatform
	client  *platform.Client
	pages   *PageCache
	cms     *CMSService
	catalog *CatalogService
	blog    *BlogService
}

func newTestServices(t *testing.T, fake *fakePlatform) *testServices {
	t.Helper()
	client := fake.client(t)
	pages := NewPageCache(nil)
	cms := NewCMSService(client, pages, testRevalidateConfig())
	catalog := NewCatalogService(client, pages, cms, testCatalogConfig(), testRevalidateConfig())
	blog := NewBlogService(client, pages, testRevalidateConfig())
	return &testServices{
		fake:    fake,
		client:  client,
		pages:   pages,
		cms:     cms,
		catalog: catalog,
		blog:    blog,
	}
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PendingLogin{}, &models.ContactSubmission{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func newTestSessionService(t *testing.T, client *platform.Client, db *gorm.DB) *SessionService {
	t.Helper()
	svc, err := NewSessionService(client, repository.NewPendingLoginRepository(db), config.SessionConfig{
		CookieName: "rm_session",
		MaxAgeDays: 30,
		Secret:     "test-session-secret",
	}, testSiteConfig())
	if err != nil {
		t.Fatalf("new session service failed: %v", err)
	}
	return svc
}
