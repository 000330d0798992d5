// Package platform 封装托管电商平台（商品、购物车、博客、CMS、CRM、会员）的 REST 接口
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"

	"golang.org/x/time/rate"
)

var (
	ErrConfigInvalid   = errors.New("platform config invalid")
	ErrRequestFailed   = errors.New("platform request failed")
	ErrResponseInvalid = errors.New("platform response invalid")
	ErrTokenRequired   = errors.New("platform token required")
)

const (
	defaultTimeout      = 12 * time.Second
	serverTokenLeeway   = time.Minute
	maxErrorBodyPreview = 512
)

// APIError 平台返回的非 2xx 响应
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("platform status %d: %s", e.Status, e.Message)
}

// IsNotFound 资源不存在（含购物车未创建、CMS 集合未创建）
func IsNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == http.StatusNotFound {
		return true
	}
	switch apiErr.Code {
	case constants.PlatformCodeCartNotFound, constants.PlatformCodeCollectionNotFound, constants.PlatformCodeNotFound:
		return true
	}
	return false
}

// IsCartNotFound 当前访客还没有购物车
func IsCartNotFound(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Code == constants.PlatformCodeCartNotFound {
		return true
	}
	return apiErr.Status == http.StatusNotFound && strings.Contains(strings.ToLower(apiErr.Message), "cart")
}

// IsDuplicate 联系人已存在
func IsDuplicate(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusConflict ||
		apiErr.Code == constants.PlatformCodeDuplicate ||
		strings.Contains(strings.ToUpper(apiErr.Message), "DUPLICATE")
}

// Client 平台 HTTP 客户端，并发安全
type Client struct {
	cfg        config.PlatformConfig
	httpClient *http.Client
	limiter    *rate.Limiter

	tokenMu     sync.Mutex
	serverToken string
	serverExp   time.Time
	now         func() time.Time
}

// NewClient 创建平台客户端，httpClient 为空时使用默认客户端
func NewClient(cfg config.PlatformConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		now:        time.Now,
	}
}

// Config 返回平台配置
func (c *Client) Config() config.PlatformConfig {
	return c.cfg
}

// auth 单次请求的认证方式
type auth struct {
	token  string
	apiKey bool
}

func bearer(token string) auth {
	return auth{token: token}
}

func (c *Client) apiKeyAuth() (auth, error) {
	if c.cfg.APIKey == "" || c.cfg.SiteID == "" {
		return auth{}, fmt.Errorf("%w: api_key and site_id are required", ErrConfigInvalid)
	}
	return auth{apiKey: true}, nil
}

// serverAuth 服务端只读请求：优先 API Key，否则使用服务端持有的访客 token
func (c *Client) serverAuth(ctx context.Context) (auth, error) {
	if c.cfg.APIKey != "" && c.cfg.SiteID != "" {
		return auth{apiKey: true}, nil
	}
	token, err := c.serverVisitorToken(ctx)
	if err != nil {
		return auth{}, err
	}
	return bearer(token), nil
}

func (c *Client) serverVisitorToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	if c.serverToken != "" && c.now().Add(serverTokenLeeway).Before(c.serverExp) {
		return c.serverToken, nil
	}
	tokens, err := c.VisitorTokens(ctx)
	if err != nil {
		return "", err
	}
	c.serverToken = tokens.AccessToken
	c.serverExp = tokens.ExpiresAt
	return c.serverToken, nil
}

// doJSON 发送 JSON 请求并解析响应；非 2xx 返回包装了 *APIError 的 ErrRequestFailed
func (c *Client) doJSON(ctx context.Context, method, endpoint string, a auth, in interface{}, out interface{}) error {
	if c.cfg.BaseURL == "" {
		return fmt.Errorf("%w: base_url is empty", ErrConfigInvalid)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := c.withDefaultTimeout(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: throttled: %v", ErrRequestFailed, err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request failed: %v", ErrRequestFailed, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("%w: build request failed", ErrRequestFailed)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case a.apiKey:
		req.Header.Set("Authorization", c.cfg.APIKey)
		req.Header.Set("wix-site-id", c.cfg.SiteID)
	case strings.TrimSpace(a.token) != "":
		req.Header.Set("Authorization", strings.TrimSpace(a.token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request failed: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response failed", ErrRequestFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		logger.Debugw("platform_request_failed",
			"method", method,
			"endpoint", endpoint,
			"status", apiErr.Status,
			"code", apiErr.Code,
		)
		return fmt.Errorf("%w: %w", ErrRequestFailed, apiErr)
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: decode %s failed: %v", ErrResponseInvalid, endpoint, err)
	}
	return nil
}

func (c *Client) withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	timeout := c.cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	raw := map[string]interface{}{}
	if err := json.Unmarshal(body, &raw); err != nil {
		preview := strings.TrimSpace(string(body))
		if len(preview) > maxErrorBodyPreview {
			preview = preview[:maxErrorBodyPreview]
		}
		apiErr.Message = preview
		return apiErr
	}
	apiErr.Code = firstNonEmpty(
		readString(raw, "details", "applicationError", "code"),
		readString(raw, "code"),
		readString(raw, "error"),
	)
	apiErr.Message = firstNonEmpty(
		readString(raw, "message"),
		readString(raw, "details", "applicationError", "description"),
		readString(raw, "error_description"),
		http.StatusText(status),
	)
	return apiErr
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func readString(raw map[string]interface{}, path ...string) string {
	if raw == nil {
		return ""
	}
	var current interface{} = raw
	for _, seg := range path {
		if idx, err := strconv.Atoi(seg); err == nil {
			arr, ok := current.([]interface{})
			if !ok || idx < 0 || idx >= len(arr) {
				return ""
			}
			current = arr[idx]
			continue
		}
		next, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current = next[seg]
	}
	switch v := current.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
