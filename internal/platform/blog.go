package platform

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// MaxPostPage 单次文章查询上限
const MaxPostPage = 100

// PostQuery 文章查询条件
type PostQuery struct {
	Slug  string
	Limit int
}

// Post 平台文章，封面图已按媒体规则解析
type Post struct {
	ID            string     `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	Excerpt       string     `json:"excerpt"`
	ContentText   string     `json:"content_text"`
	CoverImage    string     `json:"cover_image"`
	PublishedAt   *time.Time `json:"published_at"`
	MinutesToRead int        `json:"minutes_to_read"`
	CategoryIDs   []string   `json:"category_ids"`
	Hashtags      []string   `json:"hashtags"`
	Tags          []string   `json:"tags"`
}

type rawPost struct {
	ID                 string   `json:"id"`
	LegacyID           string   `json:"_id"`
	Slug               string   `json:"slug"`
	Title              string   `json:"title"`
	Excerpt            string   `json:"excerpt"`
	ContentText        string   `json:"contentText"`
	FirstPublishedDate string   `json:"firstPublishedDate"`
	MinutesToRead      int      `json:"minutesToRead"`
	CategoryIDs        []string `json:"categoryIds"`
	Hashtags           []string `json:"hashtags"`
	Tags               []string `json:"tags"`
	Media              *struct {
		WixMedia *struct {
			Image string `json:"image"`
		} `json:"wixMedia,omitempty"`
	} `json:"media,omitempty"`
}

// QueryPosts 查询博客文章
func (c *Client) QueryPosts(ctx context.Context, q PostQuery) ([]Post, error) {
	a, err := c.serverAuth(ctx)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 || limit > MaxPostPage {
		limit = MaxPostPage
	}
	query := map[string]interface{}{
		"paging": paging{Limit: limit},
		"sort":   []map[string]string{{"fieldName": "firstPublishedDate", "order": "DESC"}},
	}
	if slug := strings.TrimSpace(q.Slug); slug != "" {
		query["filter"] = map[string]string{"slug": slug}
	}
	var resp struct {
		Posts []rawPost `json:"posts"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/blog/v3/posts/query", a, map[string]interface{}{
		"query":     query,
		"fieldsets": []string{"CONTENT_TEXT"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]Post, 0, len(resp.Posts))
	for _, raw := range resp.Posts {
		out = append(out, c.normalizePost(raw))
	}
	return out, nil
}

func (c *Client) normalizePost(raw rawPost) Post {
	post := Post{
		ID:            firstNonEmpty(raw.ID, raw.LegacyID),
		Slug:          raw.Slug,
		Title:         strings.TrimSpace(raw.Title),
		Excerpt:       raw.Excerpt,
		ContentText:   raw.ContentText,
		MinutesToRead: raw.MinutesToRead,
		CategoryIDs:   nonNil(raw.CategoryIDs),
		Hashtags:      nonNil(raw.Hashtags),
		Tags:          nonNil(raw.Tags),
	}
	if raw.Media != nil && raw.Media.WixMedia != nil {
		post.CoverImage = c.MediaURL(raw.Media.WixMedia.Image)
	}
	if raw.FirstPublishedDate != "" {
		if t, err := time.Parse(time.RFC3339, raw.FirstPublishedDate); err == nil {
			post.PublishedAt = &t
		}
	}
	return post
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
