package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/platform"

	"golang.org/x/sync/errgroup"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// SitemapURL sitemap 中的一条地址
type SitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// SEOService sitemap 与 robots
type SEOService struct {
	site    config.SiteConfig
	catalog *CatalogService
	blog    *BlogService
	cms     *CMSService
	now     func() time.Time
}

// NewSEOService 创建 SEO 服务
func NewSEOService(site config.SiteConfig, catalog *CatalogService, blog *BlogService, cms *CMSService) *SEOService {
	return &SEOService{
		site:    site,
		catalog: catalog,
		blog:    blog,
		cms:     cms,
		now:     time.Now,
	}
}

// SitemapURLs 汇总静态页、分类、商品、文章与落地页；远端失败的部分直接省略
func (s *SEOService) SitemapURLs(ctx context.Context) []SitemapURL {
	lastMod := s.now().UTC().Format("2006-01-02")
	urls := []SitemapURL{
		{Loc: s.site.URL("/"), LastMod: lastMod, ChangeFreq: "daily", Priority: 1.0},
		{Loc: s.site.URL("/productos"), LastMod: lastMod, ChangeFreq: "daily", Priority: 0.9},
		{Loc: s.site.URL("/nosotros"), LastMod: lastMod, ChangeFreq: "monthly", Priority: 0.5},
		{Loc: s.site.URL("/contacto"), LastMod: lastMod, ChangeFreq: "monthly", Priority: 0.5},
	}
	for _, collection := range s.catalog.Collections() {
		urls = append(urls, SitemapURL{
			Loc:        s.site.URL("/productos/" + url.PathEscape(collection.Slug)),
			LastMod:    lastMod,
			ChangeFreq: "weekly",
			Priority:   0.7,
		})
	}

	var (
		products []platform.Product
		posts    []BlogPost
		landings []Landing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products = s.catalog.ListProducts(gctx, platform.MaxProductPage)
		return nil
	})
	g.Go(func() error {
		posts = s.blog.ListPosts(gctx)
		return nil
	})
	g.Go(func() error {
		landings = s.cms.AllLandings(gctx)
		return nil
	})
	_ = g.Wait()

	for _, product := range products {
		if strings.TrimSpace(product.Slug) == "" {
			continue
		}
		urls = append(urls, SitemapURL{
			Loc:        s.site.URL("/producto/" + url.PathEscape(product.Slug)),
			LastMod:    lastMod,
			ChangeFreq: "weekly",
			Priority:   0.8,
		})
	}
	for _, post := range posts {
		if post.LinkSlug == "" {
			continue
		}
		entry := SitemapURL{
			Loc:        s.site.URL("/blog/" + url.PathEscape(post.LinkSlug)),
			ChangeFreq: "monthly",
			Priority:   0.6,
		}
		if post.PublishedAt != nil {
			entry.LastMod = post.PublishedAt.UTC().Format("2006-01-02")
		}
		urls = append(urls, entry)
	}
	for _, landing := range landings {
		if strings.TrimSpace(landing.Slug) == "" {
			continue
		}
		urls = append(urls, SitemapURL{
			Loc:        s.site.URL("/" + url.PathEscape(landing.Slug)),
			LastMod:    lastMod,
			ChangeFreq: "monthly",
			Priority:   0.7,
		})
	}
	return urls
}

// SitemapXML 渲染 sitemap.xml
func (s *SEOService) SitemapXML(ctx context.Context) ([]byte, error) {
	set := sitemapURLSet{Xmlns: sitemapNamespace, URLs: s.SitemapURLs(ctx)}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap failed: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RobotsTxt 渲染 robots.txt
func (s *SEOService) RobotsTxt() string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	for _, path := range []string{"/carrito", s.site.ThankYouPath, "/api/"} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		b.WriteString("Disallow: " + path + "\n")
	}
	b.WriteString("\nSitemap: " + s.site.URL("/sitemap.xml") + "\n")
	return b.String()
}
