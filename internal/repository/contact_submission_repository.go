package repository

import (
	"time"

	"github.com/restomueble/storefront/internal/models"

	"gorm.io/gorm"
)

// ContactSubmissionRepository 表单提交记录数据访问接口
type ContactSubmissionRepository interface {
	Create(record *models.ContactSubmission) error
	ListRecent(kind string, limit int) ([]models.ContactSubmission, error)
	CountByStatusSince(status string, since time.Time) (int64, error)
}

// GormContactSubmissionRepository GORM 实现
type GormContactSubmissionRepository struct {
	db *gorm.DB
}

// NewContactSubmissionRepository 创建表单提交仓库
func NewContactSubmissionRepository(db *gorm.DB) *GormContactSubmissionRepository {
	return &GormContactSubmissionRepository{db: db}
}

// Create 写入提交记录
func (r *GormContactSubmissionRepository) Create(record *models.ContactSubmission) error {
	return r.db.Create(record).Error
}

// ListRecent 按创建时间倒序列出，kind 为空时不过滤
func (r *GormContactSubmissionRepository) ListRecent(kind string, limit int) ([]models.ContactSubmission, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := r.db.Model(&models.ContactSubmission{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	var records []models.ContactSubmission
	if err := query.Order("created_at desc, id desc").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountByStatusSince 统计某时间点之后某状态的提交数
func (r *GormContactSubmissionRepository) CountByStatusSince(status string, since time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.ContactSubmission{}).
		Where("status = ? AND created_at >= ?", status, since).
		Count(&total).Error
	return total, err
}
