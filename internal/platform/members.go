package platform

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Member 当前登录会员
type Member struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Nickname  string     `json:"nickname"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	CreatedAt *time.Time `json:"created_at"`
}

// DisplayName 展示名：姓名优先，其次昵称，最后邮箱
func (m *Member) DisplayName() string {
	if full := strings.TrimSpace(m.FirstName + " " + m.LastName); full != "" {
		return full
	}
	if m.Nickname != "" {
		return m.Nickname
	}
	return m.Email
}

// GetCurrentMember 读取会员 token 对应的会员资料
func (c *Client) GetCurrentMember(ctx context.Context, token string) (*Member, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrTokenRequired
	}
	var resp struct {
		Member *struct {
			ID          string `json:"id"`
			LoginEmail  string `json:"loginEmail"`
			CreatedDate string `json:"createdDate"`
			Profile     *struct {
				Nickname string `json:"nickname"`
			} `json:"profile,omitempty"`
			Contact *struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
			} `json:"contact,omitempty"`
		} `json:"member"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/members/v1/members/my?fieldsets=FULL", bearer(token), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Member == nil {
		return nil, ErrResponseInvalid
	}
	member := &Member{
		ID:    resp.Member.ID,
		Email: resp.Member.LoginEmail,
	}
	if resp.Member.Profile != nil {
		member.Nickname = resp.Member.Profile.Nickname
	}
	if resp.Member.Contact != nil {
		member.FirstName = resp.Member.Contact.FirstName
		member.LastName = resp.Member.Contact.LastName
	}
	if resp.Member.CreatedDate != "" {
		if t, err := time.Parse(time.RFC3339, resp.Member.CreatedDate); err == nil {
			member.CreatedAt = &t
		}
	}
	return member, nil
}
