package models

import "time"

// PendingLogin 登录跳转前暂存的 PKCE 交换记录，回调时一次性消费
type PendingLogin struct {
	ID           uint      `gorm:"primarykey" json:"id"`                     // 主键
	State        string    `gorm:"uniqueIndex;size:64;not null" json:"-"`    // OAuth state
	CodeVerifier string    `gorm:"size:128;not null" json:"-"`               // PKCE verifier（不返回给前端）
	RedirectURI  string    `gorm:"size:512;not null" json:"redirect_uri"`    // 回调地址
	SessionID    string    `gorm:"index;size:64;not null" json:"session_id"` // 发起登录的会话
	ExpiresAt    time.Time `gorm:"index" json:"expires_at"`                  // 过期时间
	CreatedAt    time.Time `gorm:"index" json:"created_at"`                  // 创建时间
}

// TableName 指定表名
func (PendingLogin) TableName() string {
	return "pending_logins"
}

// Expired 是否已过期
func (p *PendingLogin) Expired(now time.Time) bool {
	if p == nil {
		return true
	}
	return !now.Before(p.ExpiresAt)
}
