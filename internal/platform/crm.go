package platform

import (
	"context"
	"net/http"
	"strings"
)

// ContactName 联系人姓名
type ContactName struct {
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// ContactEmail 联系人邮箱
type ContactEmail struct {
	Tag   string `json:"tag"`
	Email string `json:"email"`
}

// ContactPhone 联系人电话
type ContactPhone struct {
	Tag         string `json:"tag"`
	Phone       string `json:"phone"`
	CountryCode string `json:"countryCode,omitempty"`
}

// ContactInfo 创建联系人所需信息
type ContactInfo struct {
	Name           *ContactName
	Emails         []ContactEmail
	Phones         []ContactPhone
	ExtendedFields map[string]string
}

func (info ContactInfo) wire() map[string]interface{} {
	out := map[string]interface{}{}
	if info.Name != nil {
		out["name"] = info.Name
	}
	if len(info.Emails) > 0 {
		out["emails"] = map[string]interface{}{"items": info.Emails}
	}
	if len(info.Phones) > 0 {
		out["phones"] = map[string]interface{}{"items": info.Phones}
	}
	if len(info.ExtendedFields) > 0 {
		out["extendedFields"] = map[string]interface{}{"items": info.ExtendedFields}
	}
	return out
}

// CreateContact 在 CRM 创建联系人，返回联系人 ID；重复联系人返回的错误满足 IsDuplicate
func (c *Client) CreateContact(ctx context.Context, info ContactInfo) (string, error) {
	a, err := c.apiKeyAuth()
	if err != nil {
		return "", err
	}
	var resp struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	err = c.doJSON(ctx, http.MethodPost, "/contacts/v4/contacts", a, map[string]interface{}{
		"info": info.wire(),
	}, &resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Contact.ID), nil
}
