package service

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/slug"

	"gopkg.in/yaml.v3"
)

//go:embed data/landings.yml
var fallbackLandingsYAML []byte

const (
	defaultStoreTitle       = "Tienda"
	defaultStoreDescription = "Descubre nuestra colección completa de mobiliario para hospitalidad."
)

// StorePageContent 商店页标题与描述
type StorePageContent struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Landing SEO 落地页
type Landing struct {
	Kind        string   `json:"kind" yaml:"-"`
	Slug        string   `json:"slug" yaml:"slug"`
	Title       string   `json:"title" yaml:"titulo"`
	Subtitle    string   `json:"subtitle" yaml:"subtitulo"`
	Description string   `json:"description" yaml:"descripcion"`
	City        string   `json:"city" yaml:"ciudad"`
	State       string   `json:"state" yaml:"estado"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
}

// CMSService CMS 内容服务
type CMSService struct {
	platform *platform.Client
	pages    *PageCache
	fallback []Landing
}

// NewCMSService 创建 CMS 服务并注册页面加载器
func NewCMSService(client *platform.Client, pages *PageCache, windows config.RevalidateConfig) *CMSService {
	fallback, err := parseFallbackLandings(fallbackLandingsYAML)
	if err != nil {
		logger.Errorw("cms_fallback_landings_invalid", "error", err)
	}
	s := &CMSService{
		platform: client,
		pages:    pages,
		fallback: fallback,
	}
	landingWindow := seconds(windows.LandingSeconds)
	pages.Register(constants.PageKindStoreConfigCMS, landingWindow, s.loadStorePageContent)
	pages.Register(constants.PageKindHomepageCMS, seconds(windows.ListingSeconds), s.loadHomepageContent)
	pages.Register(constants.PageKindLanding, landingWindow, s.loadLanding)
	pages.Register(constants.PageKindLandingList, landingWindow, s.loadAllLandings)
	return s
}

// StorePageContent 读取商店页文案，失败时使用默认文案
func (s *CMSService) StorePageContent(ctx context.Context) StorePageContent {
	var content StorePageContent
	if err := s.pages.Get(ctx, constants.PageKindStoreConfigCMS, "", &content); err != nil {
		logger.Warnw("cms_store_content_fetch_failed", "error", err)
		return defaultStorePageContent()
	}
	return content
}

// HomepageContent 读取首页 CMS 内容，失败时返回空内容
func (s *CMSService) HomepageContent(ctx context.Context) map[string]interface{} {
	content := map[string]interface{}{}
	if err := s.pages.Get(ctx, constants.PageKindHomepageCMS, "", &content); err != nil {
		logger.Warnw("cms_homepage_fetch_failed", "error", err)
		return map[string]interface{}{}
	}
	return content
}

// Landing 按 slug 查找落地页：TiendasSEO → LandingsSEO → 本地兜底
func (s *CMSService) Landing(ctx context.Context, raw string) (*Landing, error) {
	key := slug.Normalize(slug.Decode(raw))
	if key == "" {
		return nil, ErrLandingNotFound
	}
	var landing Landing
	if err := s.pages.Get(ctx, constants.PageKindLanding, key, &landing); err != nil {
		return nil, err
	}
	return &landing, nil
}

// AllLandings 全部落地页，LandingsSEO 为空时使用本地兜底列表
func (s *CMSService) AllLandings(ctx context.Context) []Landing {
	landings := []Landing{}
	if err := s.pages.Get(ctx, constants.PageKindLandingList, "", &landings); err != nil {
		logger.Warnw("cms_landings_fetch_failed", "error", err)
		return append([]Landing{}, s.fallback...)
	}
	return landings
}

// FallbackLandings 本地兜底落地页
func (s *CMSService) FallbackLandings() []Landing {
	return append([]Landing{}, s.fallback...)
}

func (s *CMSService) loadStorePageContent(ctx context.Context, _ string) (interface{}, error) {
	items, err := s.queryCollection(ctx, constants.CMSCollectionStoreConfig, platform.DataQuery{Limit: 1})
	if err != nil {
		return nil, err
	}
	content := defaultStorePageContent()
	if len(items) == 0 {
		return content, nil
	}
	if v := strings.TrimSpace(items[0].String("titulo")); v != "" {
		content.Title = v
	}
	if v := strings.TrimSpace(items[0].String("descripcion")); v != "" {
		content.Description = v
	}
	return content, nil
}

func (s *CMSService) loadHomepageContent(ctx context.Context, _ string) (interface{}, error) {
	items, err := s.queryCollection(ctx, constants.CMSCollectionHomepage, platform.DataQuery{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return map[string]interface{}{}, nil
	}
	return items[0].Content(), nil
}

func (s *CMSService) loadLanding(ctx context.Context, key string) (interface{}, error) {
	sources := []struct {
		collection string
		kind       string
	}{
		{constants.CMSCollectionStoreLanding, constants.LandingKindStore},
		{constants.CMSCollectionLandings, constants.LandingKindCity},
	}
	for _, source := range sources {
		items, err := s.queryCollection(ctx, source.collection, platform.DataQuery{
			Eq:    map[string]string{"slug": key},
			Limit: 1,
		})
		if err != nil {
			logger.Warnw("cms_landing_fetch_failed",
				"collection", source.collection,
				"slug", key,
				"error", err,
			)
			continue
		}
		if len(items) > 0 {
			return landingFromItem(items[0], source.kind), nil
		}
	}
	for _, landing := range s.fallback {
		if slug.Equal(landing.Slug, key) {
			return landing, nil
		}
	}
	return nil, ErrLandingNotFound
}

func (s *CMSService) loadAllLandings(ctx context.Context, _ string) (interface{}, error) {
	stores, err := s.queryCollection(ctx, constants.CMSCollectionStoreLanding, platform.DataQuery{})
	if err != nil {
		return nil, err
	}
	cities, err := s.queryCollection(ctx, constants.CMSCollectionLandings, platform.DataQuery{})
	if err != nil {
		return nil, err
	}
	out := make([]Landing, 0, len(stores)+len(cities)+len(s.fallback))
	if len(cities) == 0 {
		out = append(out, s.fallback...)
	}
	for _, item := range cities {
		out = append(out, landingFromItem(item, constants.LandingKindCity))
	}
	for _, item := range stores {
		out = append(out, landingFromItem(item, constants.LandingKindStore))
	}
	return out, nil
}

// queryCollection 集合不存在视为空集合
func (s *CMSService) queryCollection(ctx context.Context, collection string, q platform.DataQuery) ([]platform.DataItem, error) {
	items, err := s.platform.QueryDataItems(ctx, collection, q)
	if err != nil {
		if platform.IsNotFound(err) {
			logger.Debugw("cms_collection_missing", "collection", collection)
			return []platform.DataItem{}, nil
		}
		return nil, err
	}
	return items, nil
}

func landingFromItem(item platform.DataItem, kind string) Landing {
	return Landing{
		Kind:        kind,
		Slug:        item.String("slug"),
		Title:       item.String("titulo"),
		Subtitle:    item.String("subtitulo"),
		Description: item.String("descripcion"),
		City:        item.String("ciudad"),
		State:       item.String("estado"),
		Keywords:    splitKeywords(item.String("keywords")),
	}
}

func splitKeywords(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseFallbackLandings(raw []byte) ([]Landing, error) {
	var landings []Landing
	if err := yaml.Unmarshal(raw, &landings); err != nil {
		return []Landing{}, err
	}
	out := make([]Landing, 0, len(landings))
	for _, landing := range landings {
		if strings.TrimSpace(landing.Slug) == "" {
			continue
		}
		landing.Kind = constants.LandingKindCity
		if landing.Keywords == nil {
			landing.Keywords = []string{}
		}
		out = append(out, landing)
	}
	if len(out) == 0 {
		return out, errors.New("no fallback landings")
	}
	return out, nil
}

func defaultStorePageContent() StorePageContent {
	return StorePageContent{Title: defaultStoreTitle, Description: defaultStoreDescription}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return time.Minute
	}
	return time.Duration(n) * time.Second
}
