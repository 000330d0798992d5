package platform

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// TokenSet 访客或会员的 token 对
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// VisitorTokens 申请匿名访客 token
func (c *Client) VisitorTokens(ctx context.Context) (*TokenSet, error) {
	if strings.TrimSpace(c.cfg.ClientID) == "" {
		return nil, fmt.Errorf("%w: client_id is empty", ErrConfigInvalid)
	}
	var resp tokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/oauth2/token", auth{}, map[string]string{
		"clientId":  c.cfg.ClientID,
		"grantType": "anonymous",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrResponseInvalid)
	}
	return &TokenSet{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}, nil
}

// OAuthConfig 会员登录（授权码 + PKCE）使用的 oauth2 配置
func (c *Client) OAuthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: c.cfg.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.cfg.AuthURL,
			TokenURL:  c.cfg.BaseURL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: redirectURL,
		Scopes:      []string{"offline_access"},
	}
}

// ExchangeCode 用授权码与 PKCE verifier 换取会员 token
func (c *Client) ExchangeCode(ctx context.Context, redirectURL, code, verifier string) (*TokenSet, error) {
	ctx, cancel := c.withDefaultTimeout(c.oauthContext(ctx))
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: throttled: %v", ErrRequestFailed, err)
	}
	token, err := c.OAuthConfig(redirectURL).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", ErrRequestFailed, oauthError(err))
	}
	return tokenSetFromOAuth(token), nil
}

// RefreshTokens 使用 refresh token 续期
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrTokenRequired
	}
	ctx, cancel := c.withDefaultTimeout(c.oauthContext(ctx))
	defer cancel()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: throttled: %v", ErrRequestFailed, err)
	}
	source := c.OAuthConfig("").TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       c.now().Add(-time.Minute),
	})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %w", ErrRequestFailed, oauthError(err))
	}
	set := tokenSetFromOAuth(token)
	if set.RefreshToken == "" {
		set.RefreshToken = refreshToken
	}
	return set, nil
}

// RevokeRefreshToken 注销时吊销 refresh token
func (c *Client) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return c.doJSON(ctx, http.MethodPost, "/oauth2/revoke", auth{}, map[string]string{
		"clientId": c.cfg.ClientID,
		"token":    refreshToken,
	}, nil)
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func tokenSetFromOAuth(token *oauth2.Token) *TokenSet {
	return &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
}

// oauthError 把 oauth2.RetrieveError 转为 APIError，便于统一判断
func oauthError(err error) error {
	retrieveErr, ok := err.(*oauth2.RetrieveError)
	if !ok || retrieveErr.Response == nil {
		return err
	}
	apiErr := parseAPIError(retrieveErr.Response.StatusCode, retrieveErr.Body)
	if apiErr.Code == "" {
		apiErr.Code = retrieveErr.ErrorCode
	}
	return apiErr
}
