// Package slug 处理带重音的平台 slug 与 ASCII URL 之间的比较
package slug

import (
	"context"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackPageLimit 精确匹配未命中时，兜底比较拉取的条目上限
const FallbackPageLimit = 100

// Normalize NFD 分解后去掉所有组合附加符号并转小写
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// Decode 解码路径中的 slug，非法转义时原样返回
func Decode(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// Equal 归一化后比较
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Resolve 先精确查找，未命中再拉取一页按归一化 slug 比较，返回第一个匹配项
func Resolve[T any](
	ctx context.Context,
	raw string,
	exact func(ctx context.Context, slug string) (T, bool, error),
	page func(ctx context.Context) ([]T, error),
	slugOf func(T) string,
) (T, bool, error) {
	var zero T
	decoded := Decode(raw)

	item, ok, err := exact(ctx, decoded)
	if err != nil {
		return zero, false, err
	}
	if ok {
		return item, true, nil
	}

	items, err := page(ctx)
	if err != nil {
		return zero, false, err
	}
	want := Normalize(decoded)
	for _, candidate := range items {
		if Normalize(slugOf(candidate)) == want {
			return candidate, true, nil
		}
	}
	return zero, false, nil
}
