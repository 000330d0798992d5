package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/variant"
)

// MaxProductPage 单次商品查询上限
const MaxProductPage = 100

// RawProduct 平台返回的商品记录，字段均可能缺失
type RawProduct struct {
	ID             *string              `json:"id,omitempty"`
	Name           *string              `json:"name,omitempty"`
	Slug           *string              `json:"slug,omitempty"`
	Description    *string              `json:"description,omitempty"`
	Ribbon         *string              `json:"ribbon,omitempty"`
	PriceData      *rawPriceData        `json:"priceData,omitempty"`
	Media          *rawProductMedia     `json:"media,omitempty"`
	Stock          *variant.RawStock    `json:"stock,omitempty"`
	ProductOptions []variant.RawOption  `json:"productOptions,omitempty"`
	Variants       []variant.RawVariant `json:"variants,omitempty"`
	CollectionIDs  []string             `json:"collectionIds,omitempty"`
}

type rawPriceData struct {
	Currency  string          `json:"currency"`
	Price     json.Number     `json:"price"`
	Formatted *rawFormatPrice `json:"formatted,omitempty"`
}

type rawFormatPrice struct {
	Price string `json:"price"`
}

type rawProductMedia struct {
	MainMedia *rawMediaItem  `json:"mainMedia,omitempty"`
	Items     []rawMediaItem `json:"items,omitempty"`
}

type rawMediaItem struct {
	Image *rawImage `json:"image,omitempty"`
}

type rawImage struct {
	URL string `json:"url"`
}

// Product 归一化后的商品，下游不再处理缺失字段
type Product struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description"`
	Ribbon         string            `json:"ribbon,omitempty"`
	Price          models.Money      `json:"price"`
	FormattedPrice string            `json:"formatted_price"`
	Currency       string            `json:"currency"`
	MainImage      string            `json:"main_image"`
	Gallery        []string          `json:"gallery"`
	InStock        bool              `json:"in_stock"`
	CollectionIDs  []string          `json:"collection_ids"`
	Options        []variant.Option  `json:"options"`
	Variants       []variant.Variant `json:"variants"`
}

// Resolver 商品的变体解析器
func (p *Product) Resolver() *variant.Resolver {
	return variant.New(p.Options, p.Variants)
}

// InCollection 是否属于某个分类
func (p *Product) InCollection(collectionID string) bool {
	for _, id := range p.CollectionIDs {
		if id == collectionID {
			return true
		}
	}
	return false
}

// ProductQuery 商品查询条件
type ProductQuery struct {
	ID           string
	Slug         string
	CollectionID string
	Limit        int
}

type productQueryRequest struct {
	Query           productQueryBody `json:"query"`
	IncludeVariants bool             `json:"includeVariants"`
}

type productQueryBody struct {
	Filter string `json:"filter,omitempty"`
	Paging paging `json:"paging"`
}

type paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset,omitempty"`
}

type productQueryResponse struct {
	Products     []RawProduct `json:"products"`
	TotalResults int          `json:"totalResults"`
}

// QueryProducts 查询商品（按 id、slug 精确匹配或按分类过滤）
func (c *Client) QueryProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	a, err := c.serverAuth(ctx)
	if err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 || limit > MaxProductPage {
		limit = MaxProductPage
	}
	filter := map[string]interface{}{}
	if id := strings.TrimSpace(q.ID); id != "" {
		filter["id"] = id
	}
	if slug := strings.TrimSpace(q.Slug); slug != "" {
		filter["slug"] = slug
	}
	if id := strings.TrimSpace(q.CollectionID); id != "" {
		filter["collections.id"] = map[string]interface{}{"$hasSome": []string{id}}
	}
	req := productQueryRequest{
		Query:           productQueryBody{Paging: paging{Limit: limit}},
		IncludeVariants: true,
	}
	if len(filter) > 0 {
		encoded, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("%w: encode filter failed", ErrRequestFailed)
		}
		req.Query.Filter = string(encoded)
	}

	var resp productQueryResponse
	if err := c.doJSON(ctx, http.MethodPost, "/stores/v1/products/query", a, req, &resp); err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(resp.Products))
	for _, raw := range resp.Products {
		product, ok := c.NormalizeProduct(raw)
		if !ok {
			continue
		}
		out = append(out, product)
	}
	return out, nil
}

// NormalizeProduct 把宽松的平台记录转为严格的 Product；缺少 id 的记录被丢弃
func (c *Client) NormalizeProduct(raw RawProduct) (Product, bool) {
	id := deref(raw.ID)
	if id == "" {
		return Product{}, false
	}
	p := Product{
		ID:            id,
		Name:          deref(raw.Name),
		Slug:          deref(raw.Slug),
		Description:   deref(raw.Description),
		Ribbon:        deref(raw.Ribbon),
		InStock:       raw.Stock == nil || raw.Stock.InStock == nil || *raw.Stock.InStock,
		CollectionIDs: append([]string{}, raw.CollectionIDs...),
		Options:       variant.NormalizeOptions(raw.ProductOptions),
		Variants:      variant.NormalizeVariants(raw.Variants),
		Gallery:       []string{},
	}
	if raw.PriceData != nil {
		p.Currency = raw.PriceData.Currency
		if price, err := models.ParseMoney(raw.PriceData.Price.String()); err == nil {
			p.Price = price
		}
		if raw.PriceData.Formatted != nil {
			p.FormattedPrice = raw.PriceData.Formatted.Price
		}
	}
	if p.FormattedPrice == "" {
		p.FormattedPrice = p.Price.Format("$")
	}
	if raw.Media != nil {
		if raw.Media.MainMedia != nil && raw.Media.MainMedia.Image != nil {
			p.MainImage = c.MediaURL(raw.Media.MainMedia.Image.URL)
		}
		for _, item := range raw.Media.Items {
			if item.Image == nil {
				continue
			}
			if url := c.MediaURL(item.Image.URL); url != "" {
				p.Gallery = append(p.Gallery, url)
			}
		}
	}
	if p.MainImage == "" && len(p.Gallery) > 0 {
		p.MainImage = p.Gallery[0]
	}
	return p, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
