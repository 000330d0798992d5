package service

import (
	"context"
	"errors"
	"testing"

	"github.com/restomueble/storefront/internal/constants"
)

func TestLandingPrefersStoreCollection(t *testing.T) {
	fake := newFakePlatform()
	fake.dataItems[constants.CMSCollectionStoreLanding] = []map[string]interface{}{
		{"slug": "tienda-cdmx", "titulo": "Tienda CDMX", "ciudad": "Ciudad de México", "keywords": "sillas, mesas ,, bancos"},
	}
	fake.dataItems[constants.CMSCollectionLandings] = []map[string]interface{}{
		{"slug": "tienda-cdmx", "titulo": "Duplicada"},
	}
	svc := newTestServices(t, fake)

	landing, err := svc.cms.Landing(context.Background(), "Tienda-CDMX")
	if err != nil {
		t.Fatalf("landing lookup failed: %v", err)
	}
	if landing.Kind != constants.LandingKindStore || landing.Title != "Tienda CDMX" {
		t.Fatalf("store collection should win: %+v", landing)
	}
	if len(landing.Keywords) != 3 || landing.Keywords[1] != "mesas" {
		t.Fatalf("keywords should be split and trimmed: %+v", landing.Keywords)
	}
}

func TestLandingFallsBackToEmbeddedList(t *testing.T) {
	fake := newFakePlatform()
	svc := newTestServices(t, fake)

	landing, err := svc.cms.Landing(context.Background(), "Mobiliario-Restaurantes-Guadalajara")
	if err != nil {
		t.Fatalf("fallback landing lookup failed: %v", err)
	}
	if landing.Kind != constants.LandingKindCity || landing.City == "" {
		t.Fatalf("unexpected fallback landing: %+v", landing)
	}
	if _, err := svc.cms.Landing(context.Background(), "atlantida"); !errors.Is(err, ErrLandingNotFound) {
		t.Fatalf("expected landing not found, got %v", err)
	}
	if _, err := svc.cms.Landing(context.Background(), ""); !errors.Is(err, ErrLandingNotFound) {
		t.Fatalf("blank slug should be not found, got %v", err)
	}
}

func TestAllLandingsUsesFallbackWhenCitiesEmpty(t *testing.T) {
	fake := newFakePlatform()
	fake.dataItems[constants.CMSCollectionStoreLanding] = []map[string]interface{}{
		{"slug": "tienda-mty", "titulo": "Tienda Monterrey"},
	}
	svc := newTestServices(t, fake)

	landings := svc.cms.AllLandings(context.Background())
	fallback := svc.cms.FallbackLandings()
	if len(fallback) == 0 {
		t.Fatalf("embedded landings should not be empty")
	}
	if len(landings) != len(fallback)+1 {
		t.Fatalf("expected fallback cities plus store landing, got %d", len(landings))
	}
	last := landings[len(landings)-1]
	if last.Kind != constants.LandingKindStore || last.Slug != "tienda-mty" {
		t.Fatalf("store landing should be appended: %+v", last)
	}
}

func TestStorePageContentFromCMS(t *testing.T) {
	fake := newFakePlatform()
	fake.dataItems[constants.CMSCollectionStoreConfig] = []map[string]interface{}{
		{"titulo": "Catálogo", "descripcion": ""},
	}
	svc := newTestServices(t, fake)

	content := svc.cms.StorePageContent(context.Background())
	if content.Title != "Catálogo" || content.Description != defaultStoreDescription {
		t.Fatalf("blank fields should keep defaults: %+v", content)
	}
}

func TestParseFallbackLandingsRejectsEmpty(t *testing.T) {
	if _, err := parseFallbackLandings([]byte("[]")); err == nil {
		t.Fatalf("empty landing list should be rejected")
	}
	landings, err := parseFallbackLandings([]byte("- slug: leon\n  titulo: León\n- titulo: sin slug\n"))
	if err != nil {
		t.Fatalf("parse landings failed: %v", err)
	}
	if len(landings) != 1 || landings[0].Kind != constants.LandingKindCity || landings[0].Keywords == nil {
		t.Fatalf("unexpected landings: %+v", landings)
	}
}
