package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/slug"
	"github.com/restomueble/storefront/internal/variant"

	"golang.org/x/sync/errgroup"
)

const (
	homeProductLimit        = 50
	relatedProductLimit     = 8
	cityLandingProductLimit = 4
)

// Collection 商品分类
type Collection struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PlatformID  string `json:"platform_id"`
}

// HomePage 首页数据
type HomePage struct {
	Products []platform.Product     `json:"products"`
	Content  map[string]interface{} `json:"content"`
}

// StorePage 商店页数据
type StorePage struct {
	Content     StorePageContent   `json:"content"`
	Collections []Collection       `json:"collections"`
	Products    []platform.Product `json:"products"`
}

// CollectionPage 分类页数据
type CollectionPage struct {
	Collection Collection         `json:"collection"`
	Products   []platform.Product `json:"products"`
}

// LandingPage 落地页数据
type LandingPage struct {
	Landing  Landing            `json:"landing"`
	Products []platform.Product `json:"products"`
}

// ProductDetail 商品详情页数据
type ProductDetail struct {
	Product          platform.Product   `json:"product"`
	DefaultSelection variant.Selection  `json:"default_selection"`
	Resolution       variant.Resolution `json:"resolution"`
	Related          []platform.Product `json:"related"`
}

// CatalogService 商品目录服务
type CatalogService struct {
	platform    *platform.Client
	pages       *PageCache
	cms         *CMSService
	collections []Collection
}

// NewCatalogService 创建商品目录服务并注册页面加载器
func NewCatalogService(client *platform.Client, pages *PageCache, cms *CMSService, catalogCfg config.CatalogConfig, windows config.RevalidateConfig) *CatalogService {
	collections := make([]Collection, 0, len(catalogCfg.Collections))
	for _, item := range catalogCfg.Collections {
		if strings.TrimSpace(item.Slug) == "" {
			continue
		}
		collections = append(collections, Collection{
			Slug:        item.Slug,
			Name:        item.Name,
			Description: item.Description,
			PlatformID:  item.PlatformID,
		})
	}
	s := &CatalogService{
		platform:    client,
		pages:       pages,
		cms:         cms,
		collections: collections,
	}
	pages.Register(constants.PageKindProduct, seconds(windows.ProductSeconds), s.loadProductBySlug)
	pages.Register(constants.PageKindProductByID, seconds(windows.ProductSeconds), s.loadProductByID)
	pages.Register(constants.PageKindProductList, seconds(windows.ListingSeconds), s.loadProductList)
	pages.Register(constants.PageKindHome, seconds(windows.ListingSeconds), s.loadHomeProducts)
	return s
}

// Collections 静态商品分类
func (s *CatalogService) Collections() []Collection {
	return append([]Collection{}, s.collections...)
}

// CollectionBySlug 按 slug 查找分类（忽略大小写与重音）
func (s *CatalogService) CollectionBySlug(raw string) (Collection, bool) {
	decoded := slug.Decode(raw)
	for _, c := range s.collections {
		if slug.Equal(c.Slug, decoded) {
			return c, true
		}
	}
	return Collection{}, false
}

// ListProducts 商品列表，失败时返回空列表
func (s *CatalogService) ListProducts(ctx context.Context, limit int) []platform.Product {
	products := []platform.Product{}
	if err := s.pages.Get(ctx, constants.PageKindProductList, "", &products); err != nil {
		logger.Warnw("catalog_products_fetch_failed", "error", err)
		return []platform.Product{}
	}
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	return products
}

// ListByCollection 分类下的商品
func (s *CatalogService) ListByCollection(ctx context.Context, raw string) (*CollectionPage, error) {
	collection, ok := s.CollectionBySlug(raw)
	if !ok {
		return nil, ErrCollectionNotFound
	}
	page := &CollectionPage{Collection: collection, Products: []platform.Product{}}
	for _, product := range s.ListProducts(ctx, platform.MaxProductPage) {
		if product.InCollection(collection.PlatformID) {
			page.Products = append(page.Products, product)
		}
	}
	return page, nil
}

// Home 首页：商品与 CMS 内容并发加载，互不影响
func (s *CatalogService) Home(ctx context.Context) *HomePage {
	page := &HomePage{}
	var g errgroup.Group
	g.Go(func() error {
		products := []platform.Product{}
		if err := s.pages.Get(ctx, constants.PageKindHome, "", &products); err != nil {
			logger.Warnw("catalog_home_products_fetch_failed", "error", err)
		}
		page.Products = products
		return nil
	})
	g.Go(func() error {
		page.Content = s.cms.HomepageContent(ctx)
		return nil
	})
	_ = g.Wait()
	return page
}

// StorePage 商店页：CMS 文案与完整商品列表
func (s *CatalogService) StorePage(ctx context.Context) *StorePage {
	page := &StorePage{Collections: s.Collections()}
	var g errgroup.Group
	g.Go(func() error {
		page.Content = s.cms.StorePageContent(ctx)
		return nil
	})
	g.Go(func() error {
		page.Products = s.ListProducts(ctx, platform.MaxProductPage)
		return nil
	})
	_ = g.Wait()
	return page
}

// LandingPage 落地页：商店型展示全部商品，城市型展示少量推荐
func (s *CatalogService) LandingPage(ctx context.Context, raw string) (*LandingPage, error) {
	landing, err := s.cms.Landing(ctx, raw)
	if err != nil {
		return nil, err
	}
	limit := cityLandingProductLimit
	if landing.Kind == constants.LandingKindStore {
		limit = platform.MaxProductPage
	}
	return &LandingPage{Landing: *landing, Products: s.ListProducts(ctx, limit)}, nil
}

// ProductBySlug 商品详情；slug 不存在返回 ErrProductNotFound
func (s *CatalogService) ProductBySlug(ctx context.Context, raw string) (*ProductDetail, error) {
	product, err := s.productBySlug(ctx, raw)
	if err != nil {
		return nil, err
	}
	resolver := product.Resolver()
	defaults := resolver.DefaultSelection()
	detail := &ProductDetail{
		Product:          *product,
		DefaultSelection: defaults,
		Resolution:       resolver.Resolve(defaults),
		Related:          []platform.Product{},
	}
	// 多取一条，排除当前商品后仍能凑满
	for _, candidate := range s.ListProducts(ctx, relatedProductLimit+1) {
		if candidate.ID == product.ID {
			continue
		}
		detail.Related = append(detail.Related, candidate)
		if len(detail.Related) == relatedProductLimit {
			break
		}
	}
	return detail, nil
}

// ResolveSelection 按任意选择解析变体与库存
func (s *CatalogService) ResolveSelection(ctx context.Context, raw string, sel variant.Selection) (*variant.Resolution, error) {
	product, err := s.productBySlug(ctx, raw)
	if err != nil {
		return nil, err
	}
	resolution := product.Resolver().Resolve(sel)
	return &resolution, nil
}

// ProductByID 按 id 读取商品（加购时使用）
func (s *CatalogService) ProductByID(ctx context.Context, id string) (*platform.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrCartProductRequired
	}
	var product platform.Product
	if err := s.pages.Get(ctx, constants.PageKindProductByID, id, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *CatalogService) productBySlug(ctx context.Context, raw string) (*platform.Product, error) {
	key := strings.TrimSpace(slug.Decode(raw))
	if key == "" {
		return nil, ErrProductNotFound
	}
	var product platform.Product
	if err := s.pages.Get(ctx, constants.PageKindProduct, key, &product); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrContentFetchFailed, err)
	}
	return &product, nil
}

func (s *CatalogService) loadProductBySlug(ctx context.Context, key string) (interface{}, error) {
	product, ok, err := slug.Resolve(ctx, key,
		func(ctx context.Context, value string) (platform.Product, bool, error) {
			items, err := s.platform.QueryProducts(ctx, platform.ProductQuery{Slug: value, Limit: 1})
			if err != nil || len(items) == 0 {
				return platform.Product{}, false, err
			}
			return items[0], true, nil
		},
		func(ctx context.Context) ([]platform.Product, error) {
			return s.platform.QueryProducts(ctx, platform.ProductQuery{Limit: slug.FallbackPageLimit})
		},
		func(p platform.Product) string { return p.Slug },
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *CatalogService) loadProductByID(ctx context.Context, id string) (interface{}, error) {
	items, err := s.platform.QueryProducts(ctx, platform.ProductQuery{ID: id, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrProductNotFound
	}
	return items[0], nil
}

func (s *CatalogService) loadProductList(ctx context.Context, _ string) (interface{}, error) {
	return s.platform.QueryProducts(ctx, platform.ProductQuery{Limit: platform.MaxProductPage})
}

func (s *CatalogService) loadHomeProducts(ctx context.Context, _ string) (interface{}, error) {
	return s.platform.QueryProducts(ctx, platform.ProductQuery{Limit: homeProductLimit})
}
