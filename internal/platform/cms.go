package platform

import (
	"context"
	"net/http"
	"strings"
)

// DataQuery CMS 集合查询条件
type DataQuery struct {
	Eq    map[string]string
	Limit int
}

// DataItem CMS 集合中的一条记录
// 字段可能直接位于顶层，也可能嵌套在 data 下
type DataItem struct {
	ID     string                 `json:"id"`
	Fields map[string]interface{} `json:"fields"`
}

// String 读取字符串字段，顶层优先，其次 data 下
func (d DataItem) String(field string) string {
	if v := readString(d.Fields, field); strings.TrimSpace(v) != "" {
		return v
	}
	return readString(d.Fields, "data", field)
}

// Content 返回记录内容；存在非空 data 时返回 data
func (d DataItem) Content() map[string]interface{} {
	if nested, ok := d.Fields["data"].(map[string]interface{}); ok && len(nested) > 0 {
		return nested
	}
	return d.Fields
}

type rawDataItem struct {
	ID               string                 `json:"id"`
	LegacyID         string                 `json:"_id"`
	DataCollectionID string                 `json:"dataCollectionId"`
	Data             map[string]interface{} `json:"data"`
}

// QueryDataItems 查询 CMS 集合；集合不存在时返回的错误满足 IsNotFound
func (c *Client) QueryDataItems(ctx context.Context, collection string, q DataQuery) ([]DataItem, error) {
	a, err := c.serverAuth(ctx)
	if err != nil {
		return nil, err
	}
	query := map[string]interface{}{}
	if q.Limit > 0 {
		query["paging"] = paging{Limit: q.Limit}
	}
	if len(q.Eq) > 0 {
		filter := make(map[string]interface{}, len(q.Eq))
		for k, v := range q.Eq {
			filter[k] = map[string]string{"$eq": v}
		}
		query["filter"] = filter
	}
	var resp struct {
		DataItems []rawDataItem `json:"dataItems"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/wix-data/v2/items/query", a, map[string]interface{}{
		"dataCollectionId": collection,
		"query":            query,
	}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]DataItem, 0, len(resp.DataItems))
	for _, raw := range resp.DataItems {
		fields := raw.Data
		if fields == nil {
			fields = map[string]interface{}{}
		}
		id := firstNonEmpty(raw.ID, raw.LegacyID, readString(fields, "_id"))
		out = append(out, DataItem{ID: id, Fields: fields})
	}
	return out, nil
}
