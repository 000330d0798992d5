package repository

import (
	"errors"
	"time"

	"github.com/restomueble/storefront/internal/models"

	"gorm.io/gorm"
)

// PendingLoginRepository 登录暂存记录数据访问接口
type PendingLoginRepository interface {
	Create(record *models.PendingLogin) error
	GetByState(state string) (*models.PendingLogin, error)
	DeleteByState(state string) error
	DeleteExpired(now time.Time) (int64, error)
}

// GormPendingLoginRepository GORM 实现
type GormPendingLoginRepository struct {
	db *gorm.DB
}

// NewPendingLoginRepository 创建登录暂存仓库
func NewPendingLoginRepository(db *gorm.DB) *GormPendingLoginRepository {
	return &GormPendingLoginRepository{db: db}
}

// Create 写入暂存记录
func (r *GormPendingLoginRepository) Create(record *models.PendingLogin) error {
	return r.db.Create(record).Error
}

// GetByState 按 state 读取，不存在返回 nil
func (r *GormPendingLoginRepository) GetByState(state string) (*models.PendingLogin, error) {
	var record models.PendingLogin
	if err := r.db.Where("state = ?", state).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteByState 删除记录，记录不存在不算错误
func (r *GormPendingLoginRepository) DeleteByState(state string) error {
	return r.db.Where("state = ?", state).Delete(&models.PendingLogin{}).Error
}

// DeleteExpired 清理过期记录，返回删除条数
func (r *GormPendingLoginRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.PendingLogin{})
	return result.RowsAffected, result.Error
}
