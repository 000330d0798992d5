package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/restomueble/storefront/internal/variant"
)

func TestProductBySlugFallsBackToNormalizedComparison(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{
		fakeProduct("p1", "Silla Bistró", "silla-bistró", "col-sillas"),
		fakeProduct("p2", "Mesa Alta", "mesa-alta", "col-mesas"),
	}
	svc := newTestServices(t, fake)

	detail, err := svc.catalog.ProductBySlug(context.Background(), "silla-bistro")
	if err != nil {
		t.Fatalf("product by slug failed: %v", err)
	}
	if detail.Product.ID != "p1" {
		t.Fatalf("unexpected product: %+v", detail.Product)
	}
	if len(detail.Related) != 1 || detail.Related[0].ID != "p2" {
		t.Fatalf("related should exclude current product: %+v", detail.Related)
	}
	if len(fake.productQueries) < 2 || fake.productQueries[0]["slug"] != "silla-bistro" {
		t.Fatalf("exact lookup should run first: %+v", fake.productQueries)
	}
	if _, ok := fake.productQueries[1]["slug"]; ok {
		t.Fatalf("fallback page should not filter by slug: %+v", fake.productQueries[1])
	}
}

func TestProductDetailFillsRelatedAfterExcludingCurrent(t *testing.T) {
	fake := newFakePlatform()
	for i := 1; i <= 12; i++ {
		fake.products = append(fake.products, fakeProduct(fmt.Sprintf("p%d", i), fmt.Sprintf("Producto %d", i), fmt.Sprintf("producto-%d", i)))
	}
	svc := newTestServices(t, fake)

	detail, err := svc.catalog.ProductBySlug(context.Background(), "producto-3")
	if err != nil {
		t.Fatalf("product by slug failed: %v", err)
	}
	if len(detail.Related) != relatedProductLimit {
		t.Fatalf("expected %d related products, got %d", relatedProductLimit, len(detail.Related))
	}
	for _, related := range detail.Related {
		if related.ID == "p3" {
			t.Fatalf("related should exclude current product")
		}
	}
	if detail.Related[len(detail.Related)-1].ID != "p9" {
		t.Fatalf("related should keep listing order: %+v", detail.Related)
	}
}

func TestProductBySlugDecodesPercentEncoding(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{fakeProduct("p1", "Silla Bistró", "silla-bistró")}
	svc := newTestServices(t, fake)

	detail, err := svc.catalog.ProductBySlug(context.Background(), "silla-bistr%C3%B3")
	if err != nil {
		t.Fatalf("product by encoded slug failed: %v", err)
	}
	if detail.Product.ID != "p1" {
		t.Fatalf("unexpected product: %+v", detail.Product)
	}
	if fake.productQueries[0]["slug"] != "silla-bistró" {
		t.Fatalf("exact lookup should use decoded slug: %+v", fake.productQueries[0])
	}
}

func TestProductBySlugNotFoundAndFailure(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{fakeProduct("p1", "Silla", "silla")}
	svc := newTestServices(t, fake)

	if _, err := svc.catalog.ProductBySlug(context.Background(), "sofa"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
	if _, err := svc.catalog.ProductBySlug(context.Background(), "  "); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("blank slug should be not found, got %v", err)
	}

	fake.productFailures = 1
	if _, err := svc.catalog.ProductBySlug(context.Background(), "silla"); !errors.Is(err, ErrContentFetchFailed) {
		t.Fatalf("expected content fetch failure, got %v", err)
	}
}

func TestProductDetailDefaultSelection(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{fakeProductWithVariants("p1", "silla-bistro")}
	svc := newTestServices(t, fake)

	detail, err := svc.catalog.ProductBySlug(context.Background(), "silla-bistro")
	if err != nil {
		t.Fatalf("product by slug failed: %v", err)
	}
	if detail.DefaultSelection["Color"] != "Rojo" {
		t.Fatalf("default selection should pick first choice: %+v", detail.DefaultSelection)
	}
	if !detail.Resolution.InStock || detail.Resolution.VariantID != "v-rojo" {
		t.Fatalf("unexpected default resolution: %+v", detail.Resolution)
	}

	resolution, err := svc.catalog.ResolveSelection(context.Background(), "silla-bistro", variant.Selection{"Color": "Azul"})
	if err != nil {
		t.Fatalf("resolve selection failed: %v", err)
	}
	if resolution.InStock || resolution.VariantID != "v-azul" {
		t.Fatalf("out of stock variant should resolve as unavailable: %+v", resolution)
	}
	if resolution.Availability["Color"]["Azul"] || !resolution.Availability["Color"]["Rojo"] {
		t.Fatalf("unexpected availability map: %+v", resolution.Availability)
	}
}

func TestListByCollection(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{
		fakeProduct("p1", "Silla", "silla", "col-sillas"),
		fakeProduct("p2", "Mesa", "mesa", "col-mesas"),
		fakeProduct("p3", "Banco", "banco", "col-sillas", "col-mesas"),
	}
	svc := newTestServices(t, fake)

	page, err := svc.catalog.ListByCollection(context.Background(), "SILLAS")
	if err != nil {
		t.Fatalf("list by collection failed: %v", err)
	}
	if page.Collection.Slug != "sillas" || len(page.Products) != 2 {
		t.Fatalf("unexpected collection page: %+v", page)
	}
	if _, err := svc.catalog.ListByCollection(context.Background(), "sofas"); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("expected collection not found, got %v", err)
	}
}

func TestListProductsDegradesToEmpty(t *testing.T) {
	fake := newFakePlatform()
	fake.productFailures = 1
	svc := newTestServices(t, fake)

	products := svc.catalog.ListProducts(context.Background(), 0)
	if products == nil || len(products) != 0 {
		t.Fatalf("listing failure should degrade to empty list: %+v", products)
	}
}

func TestHomeAndStorePageDegradeIndependently(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{fakeProduct("p1", "Silla", "silla")}
	svc := newTestServices(t, fake)

	home := svc.catalog.Home(context.Background())
	if len(home.Products) != 1 {
		t.Fatalf("home products should load: %+v", home.Products)
	}
	if home.Content == nil || len(home.Content) != 0 {
		t.Fatalf("missing homepage collection should yield empty content: %+v", home.Content)
	}

	store := svc.catalog.StorePage(context.Background())
	if store.Content.Title != defaultStoreTitle {
		t.Fatalf("store content should fall back to defaults: %+v", store.Content)
	}
	if len(store.Collections) != 2 || len(store.Products) != 1 {
		t.Fatalf("unexpected store page: %+v", store)
	}
}

func TestProductByID(t *testing.T) {
	fake := newFakePlatform()
	fake.products = []map[string]interface{}{fakeProduct("p1", "Silla", "silla")}
	svc := newTestServices(t, fake)

	product, err := svc.catalog.ProductByID(context.Background(), "p1")
	if err != nil || product.ID != "p1" {
		t.Fatalf("product by id failed: %v %+v", err, product)
	}
	if _, err := svc.catalog.ProductByID(context.Background(), "nope"); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}
