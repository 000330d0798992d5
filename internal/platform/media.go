package platform

import (
	"regexp"
	"strings"
)

const defaultMediaBaseURL = "https://static.wixstatic.com/media/"

var internalImagePattern = regexp.MustCompile(`^wix:image://v1/([^/]+)/`)

// ResolveMediaURL 把平台内部图片引用转为公开地址
// wix:image://v1/<fileId>/<name>#... -> <base><fileId>；http(s) 地址原样返回；其它返回空串
func ResolveMediaURL(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	match := internalImagePattern.FindStringSubmatch(raw)
	if len(match) < 2 || match[1] == "" {
		return ""
	}
	if base == "" {
		base = defaultMediaBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + match[1]
}

// MediaURL 使用配置的媒体域名解析图片
func (c *Client) MediaURL(raw string) string {
	return ResolveMediaURL(c.cfg.MediaBaseURL, raw)
}
