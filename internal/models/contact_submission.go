package models

import "time"

// ContactSubmission 联系表单与订阅提交记录
type ContactSubmission struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Kind      string    `gorm:"index;size:32;not null" json:"kind"`   // contact / newsletter
	Email     string    `gorm:"index;size:255;not null" json:"email"`
	Name      string    `gorm:"size:255" json:"name"`
	Phone     string    `gorm:"size:64" json:"phone"`
	Service   string    `gorm:"size:255" json:"service"`
	Message   string    `gorm:"type:text" json:"message"`
	Status    string    `gorm:"index;size:32;not null" json:"status"` // synced / duplicate / failed
	ContactID string    `gorm:"size:64" json:"contact_id"`            // 平台联系人 ID
	Error     string    `gorm:"type:text" json:"-"`
	ClientIP  string    `gorm:"size:64" json:"client_ip"`
	RequestID string    `gorm:"size:64" json:"request_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ContactSubmission) TableName() string {
	return "contact_submissions"
}
