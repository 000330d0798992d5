package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/slug"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	postListLimit    = 50
	defaultPostTitle = "Sin título"
	wordsPerMinute   = 200
)

// 墨西哥自 2022 年起取消夏令时
var mexicoCity = time.FixedZone("CST", -6*60*60)

var spanishMonths = [...]string{"ene", "feb", "mar", "abr", "may", "jun", "jul", "ago", "sept", "oct", "nov", "dic"}

// BlogPost 博客文章（响应用）
type BlogPost struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	LinkSlug      string     `json:"link_slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	CoverImageURL string     `json:"cover_image_url"`
	PublishedDate string     `json:"published_date"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
	ReadTime      string     `json:"read_time"`
	CategoryIDs   []string   `json:"category_ids"`
	Tags          []string   `json:"tags"`
	BodyHTML      string     `json:"body_html,omitempty"`
}

// BlogService 博客服务
type BlogService struct {
	platform *platform.Client
	pages    *PageCache
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewBlogService 创建博客服务并注册页面加载器
func NewBlogService(client *platform.Client, pages *PageCache, windows config.RevalidateConfig) *BlogService {
	s := &BlogService{
		platform: client,
		pages:    pages,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: newPostHTMLPolicy(),
	}
	window := seconds(windows.BlogSeconds)
	pages.Register(constants.PageKindPostList, window, s.loadPosts)
	pages.Register(constants.PageKindPost, window, s.loadPost)
	return s
}

func newPostHTMLPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}

// ListPosts 文章列表，失败时返回空列表
func (s *BlogService) ListPosts(ctx context.Context) []BlogPost {
	posts := []BlogPost{}
	if err := s.pages.Get(ctx, constants.PageKindPostList, "", &posts); err != nil {
		logger.Warnw("blog_posts_fetch_failed", "error", err)
		return []BlogPost{}
	}
	return posts
}

// PostBySlug 文章详情；不存在返回 ErrPostNotFound
func (s *BlogService) PostBySlug(ctx context.Context, raw string) (*BlogPost, error) {
	key := strings.TrimSpace(slug.Decode(raw))
	if key == "" {
		return nil, ErrPostNotFound
	}
	var post BlogPost
	if err := s.pages.Get(ctx, constants.PageKindPost, key, &post); err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrContentFetchFailed, err)
	}
	return &post, nil
}

func (s *BlogService) loadPosts(ctx context.Context, _ string) (interface{}, error) {
	posts, err := s.platform.QueryPosts(ctx, platform.PostQuery{Limit: postListLimit})
	if err != nil {
		return nil, err
	}
	out := make([]BlogPost, 0, len(posts))
	for _, post := range posts {
		out = append(out, s.mapPost(post, false))
	}
	return out, nil
}

func (s *BlogService) loadPost(ctx context.Context, key string) (interface{}, error) {
	post, ok, err := slug.Resolve(ctx, key,
		func(ctx context.Context, value string) (platform.Post, bool, error) {
			items, err := s.platform.QueryPosts(ctx, platform.PostQuery{Slug: value, Limit: 1})
			if err != nil || len(items) == 0 {
				return platform.Post{}, false, err
			}
			return items[0], true, nil
		},
		func(ctx context.Context) ([]platform.Post, error) {
			return s.platform.QueryPosts(ctx, platform.PostQuery{Limit: slug.FallbackPageLimit})
		},
		func(p platform.Post) string { return p.Slug },
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostNotFound
	}
	return s.mapPost(post, true), nil
}

func (s *BlogService) mapPost(post platform.Post, withBody bool) BlogPost {
	out := BlogPost{
		ID:            post.ID,
		Slug:          post.Slug,
		LinkSlug:      slug.Normalize(post.Slug),
		Title:         strings.TrimSpace(post.Title),
		Excerpt:       strings.TrimSpace(post.Excerpt),
		CoverImageURL: post.CoverImage,
		PublishedAt:   post.PublishedAt,
		ReadTime:      readTime(post.MinutesToRead, post.ContentText),
		CategoryIDs:   nonEmptyStrings(post.CategoryIDs),
		Tags:          nonEmptyStrings(post.Hashtags),
	}
	if out.Title == "" {
		out.Title = defaultPostTitle
	}
	if len(out.Tags) == 0 {
		out.Tags = nonEmptyStrings(post.Tags)
	}
	if post.PublishedAt != nil {
		out.PublishedDate = formatSpanishDate(*post.PublishedAt)
	}
	if withBody {
		source := post.ContentText
		if strings.TrimSpace(source) == "" {
			source = post.Excerpt
		}
		out.BodyHTML = s.renderBody(source)
	}
	return out
}

// renderBody Markdown 渲染后按 UGC 策略清洗
func (s *BlogService) renderBody(source string) string {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		logger.Warnw("blog_body_render_failed", "error", err)
		return s.policy.Sanitize(source)
	}
	return string(s.policy.SanitizeBytes(buf.Bytes()))
}

// readTime 优先使用平台给出的阅读时长，否则按每分钟 200 词估算，至少 1 分钟
func readTime(minutesToRead int, text string) string {
	if minutesToRead > 0 {
		return fmt.Sprintf("%d min", minutesToRead)
	}
	words := len(strings.Fields(text))
	minutes := int(math.Round(float64(words) / wordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min", minutes)
}

// formatSpanishDate 格式化为 "02 ene 2025"
func formatSpanishDate(t time.Time) string {
	local := t.In(mexicoCity)
	return fmt.Sprintf("%02d %s %d", local.Day(), spanishMonths[local.Month()-1], local.Year())
}

func nonEmptyStrings(values []string) []string {
	out := []string{}
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
