package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/restomueble/storefront/internal/config"
	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/oauth2"
)

const (
	sessionKeyInfo = "session-cookie"
	// access token 剩余有效期小于该值即视为过期
	accessTokenLeeway = 30 * time.Second
)

// ErrSessionCookieInvalid Cookie 被篡改或无法解析
var ErrSessionCookieInvalid = errors.New("session cookie invalid")

// Tokens 平台 token 对
type Tokens struct {
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	RefreshToken    string    `json:"refresh_token"`
	Role            string    `json:"role"`
}

// Session 当前请求的会话
type Session struct {
	ID     string
	Tokens Tokens
}

// IsMember 是否会员会话
func (s *Session) IsMember() bool {
	return s != nil && s.Tokens.Role == constants.SessionRoleMember
}

// AccessExpired access token 是否已过期（含提前量）
func (s *Session) AccessExpired(now time.Time) bool {
	if s == nil || strings.TrimSpace(s.Tokens.AccessToken) == "" {
		return true
	}
	if s.Tokens.AccessExpiresAt.IsZero() {
		return false
	}
	return !now.Add(accessTokenLeeway).Before(s.Tokens.AccessExpiresAt)
}

// SessionClaims 会话 Cookie 的 JWT 声明
type SessionClaims struct {
	SessionID       string `json:"sid"`
	AccessToken     string `json:"at"`
	AccessExpiresAt int64  `json:"aexp,omitempty"`
	RefreshToken    string `json:"rt,omitempty"`
	Role            string `json:"role"`
	jwt.RegisteredClaims
}

// SessionService 访客/会员会话服务
type SessionService struct {
	platform *platform.Client
	pending  repository.PendingLoginRepository
	cfg      config.SessionConfig
	site     config.SiteConfig
	key      []byte
	now      func() time.Time
}

// NewSessionService 创建会话服务
func NewSessionService(client *platform.Client, pending repository.PendingLoginRepository, cfg config.SessionConfig, site config.SiteConfig) (*SessionService, error) {
	key, err := deriveSessionKey(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = "wix_session"
	}
	return &SessionService{
		platform: client,
		pending:  pending,
		cfg:      cfg,
		site:     site,
		key:      key,
		now:      time.Now,
	}, nil
}

// deriveSessionKey 由配置密钥派生 Cookie 签名密钥
func deriveSessionKey(secret string) ([]byte, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: session secret is empty", platform.ErrConfigInvalid)
	}
	reader := hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

// CookieName Cookie 名称
func (s *SessionService) CookieName() string {
	return s.cfg.CookieName
}

// MaxAge Cookie 有效期
func (s *SessionService) MaxAge() time.Duration {
	return s.cfg.MaxAge()
}

// Secure 是否仅 HTTPS 传输
func (s *SessionService) Secure() bool {
	return s.cfg.Secure
}

// Encode 将会话编码为 Cookie 值
func (s *SessionService) Encode(sess *Session) (string, error) {
	if sess == nil {
		return "", ErrSessionRequired
	}
	now := s.now()
	claims := SessionClaims{
		SessionID:    sess.ID,
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
		Role:         sess.Tokens.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.MaxAge())),
		},
	}
	if !sess.Tokens.AccessExpiresAt.IsZero() {
		claims.AccessExpiresAt = sess.Tokens.AccessExpiresAt.Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Decode 解析 Cookie 值，篡改、过期或格式错误一律返回 ErrSessionCookieInvalid
func (s *SessionService) Decode(raw string) (*Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrSessionRequired
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(raw, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCookieInvalid, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.AccessToken == "" {
		return nil, ErrSessionCookieInvalid
	}
	sess := &Session{
		ID: claims.SessionID,
		Tokens: Tokens{
			AccessToken:  claims.AccessToken,
			RefreshToken: claims.RefreshToken,
			Role:         claims.Role,
		},
	}
	if claims.AccessExpiresAt > 0 {
		sess.Tokens.AccessExpiresAt = time.Unix(claims.AccessExpiresAt, 0)
	}
	if sess.Tokens.Role == "" {
		sess.Tokens.Role = constants.SessionRoleVisitor
	}
	return sess, nil
}

// EnsureSession 已有合法 Cookie 时原样复用，否则申请访客 token
// issued 为 true 表示需要写回 Cookie
func (s *SessionService) EnsureSession(ctx context.Context, raw string) (*Session, bool, error) {
	if strings.TrimSpace(raw) != "" {
		sess, err := s.Decode(raw)
		if err == nil {
			return sess, false, nil
		}
		logger.Debugw("session_cookie_rejected", "error", err)
	}
	sess, err := s.newVisitorSession(ctx, uuid.NewString())
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// Refresh access token 过期时续期；续期失败回退为新的访客 token
// changed 为 true 表示需要写回 Cookie
func (s *SessionService) Refresh(ctx context.Context, sess *Session) (*Session, bool, error) {
	if sess == nil {
		return nil, false, ErrSessionRequired
	}
	if !sess.AccessExpired(s.now()) {
		return sess, false, nil
	}
	if sess.Tokens.RefreshToken != "" {
		set, err := s.platform.RefreshTokens(ctx, sess.Tokens.RefreshToken)
		if err == nil {
			return &Session{
				ID: sess.ID,
				Tokens: Tokens{
					AccessToken:     set.AccessToken,
					AccessExpiresAt: set.ExpiresAt,
					RefreshToken:    set.RefreshToken,
					Role:            sess.Tokens.Role,
				},
			}, true, nil
		}
		logger.Warnw("session_refresh_failed_fallback_visitor",
			"session_id", sess.ID,
			"role", sess.Tokens.Role,
			"error", err,
		)
	}
	fresh, err := s.newVisitorSession(ctx, sess.ID)
	if err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}

// BeginLogin 生成 PKCE 参数并暂存，返回平台登录地址
func (s *SessionService) BeginLogin(ctx context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", ErrSessionRequired
	}
	verifier := oauth2.GenerateVerifier()
	state := strings.ReplaceAll(uuid.NewString(), "-", "")
	redirectURI := s.site.URL(s.site.CallbackPath)
	record := &models.PendingLogin{
		State:        state,
		CodeVerifier: verifier,
		RedirectURI:  redirectURI,
		SessionID:    sess.ID,
		ExpiresAt:    s.now().Add(s.cfg.LoginTTL()),
	}
	if err := s.pending.Create(record); err != nil {
		return "", fmt.Errorf("%w: %w", ErrLoginStartFailed, err)
	}
	authURL, err := s.platform.CreateLoginRedirect(ctx, sess.Tokens.AccessToken, platform.LoginRedirectInput{
		RedirectURI:   redirectURI,
		State:         state,
		CodeChallenge: oauth2.S256ChallengeFromVerifier(verifier),
	})
	if err != nil {
		if delErr := s.pending.DeleteByState(state); delErr != nil {
			logger.Warnw("pending_login_cleanup_failed", "error", delErr)
		}
		return "", fmt.Errorf("%w: %w", ErrLoginStartFailed, err)
	}
	return authURL, nil
}

// CompleteLogin 处理登录回调，current 为回调请求携带的会话
// 缺少参数、暂存记录无效、发起登录的会话与当前会话不一致或换取 token 失败都直接回到首页，不重试
func (s *SessionService) CompleteLogin(ctx context.Context, current *Session, code, state string) (*Session, string) {
	code = strings.TrimSpace(code)
	state = strings.TrimSpace(state)
	if code == "" || state == "" {
		return nil, "/"
	}
	record, err := s.pending.GetByState(state)
	if err != nil {
		logger.Warnw("pending_login_lookup_failed", "error", err)
		return nil, "/"
	}
	if record == nil {
		logger.Infow("pending_login_not_found")
		return nil, "/"
	}
	defer func() {
		if err := s.pending.DeleteByState(state); err != nil {
			logger.Warnw("pending_login_cleanup_failed", "error", err)
		}
	}()
	if record.Expired(s.now()) {
		logger.Infow("pending_login_expired", "session_id", record.SessionID)
		return nil, "/"
	}
	// 只有发起登录的浏览器会话可以完成登录
	if current == nil || record.SessionID == "" || record.SessionID != current.ID {
		logger.Warnw("pending_login_session_mismatch", "session_id", record.SessionID)
		return nil, "/"
	}
	set, err := s.platform.ExchangeCode(ctx, record.RedirectURI, code, record.CodeVerifier)
	if err != nil {
		logger.Warnw("login_code_exchange_failed", "session_id", record.SessionID, "error", err)
		return nil, "/"
	}
	sess := &Session{
		ID: record.SessionID,
		Tokens: Tokens{
			AccessToken:     set.AccessToken,
			AccessExpiresAt: set.ExpiresAt,
			RefreshToken:    set.RefreshToken,
			Role:            constants.SessionRoleMember,
		},
	}
	return sess, s.site.AccountPath
}

// Logout 吊销 refresh token（尽力而为）并换发新的访客会话
func (s *SessionService) Logout(ctx context.Context, sess *Session) (*Session, error) {
	if sess != nil && sess.IsMember() {
		if err := s.platform.RevokeRefreshToken(ctx, sess.Tokens.RefreshToken); err != nil {
			logger.Warnw("logout_revoke_failed", "session_id", sess.ID, "error", err)
		}
	}
	return s.newVisitorSession(ctx, uuid.NewString())
}

// CurrentMember 当前会员资料
func (s *SessionService) CurrentMember(ctx context.Context, sess *Session) (*platform.Member, error) {
	if !sess.IsMember() {
		return nil, ErrMemberRequired
	}
	member, err := s.platform.GetCurrentMember(ctx, sess.Tokens.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMemberFetchFailed, err)
	}
	return member, nil
}

func (s *SessionService) newVisitorSession(ctx context.Context, sessionID string) (*Session, error) {
	set, err := s.platform.VisitorTokens(ctx)
	if err != nil {
		logger.Warnw("session_visitor_tokens_failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
	}
	return &Session{
		ID: sessionID,
		Tokens: Tokens{
			AccessToken:     set.AccessToken,
			AccessExpiresAt: set.ExpiresAt,
			RefreshToken:    set.RefreshToken,
			Role:            constants.SessionRoleVisitor,
		},
	}, nil
}
