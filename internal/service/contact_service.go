package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/logger"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/platform"
	"github.com/restomueble/storefront/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ContactInput 联系表单
type ContactInput struct {
	Name      string
	Email     string
	Phone     string
	Service   string
	Message   string
	ClientIP  string
	RequestID string
}

// NewsletterInput 订阅表单
type NewsletterInput struct {
	Email     string
	ClientIP  string
	RequestID string
}

// ContactService 联系表单与订阅，写入平台 CRM 并本地留档
type ContactService struct {
	platform    *platform.Client
	submissions repository.ContactSubmissionRepository
}

// NewContactService 创建联系服务
func NewContactService(client *platform.Client, submissions repository.ContactSubmissionRepository) *ContactService {
	return &ContactService{platform: client, submissions: submissions}
}

// IsValidEmail 邮箱格式校验
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// SubmitContact 提交联系表单；联系人已存在视为成功
func (s *ContactService) SubmitContact(ctx context.Context, input ContactInput) error {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	input.Service = strings.TrimSpace(input.Service)
	input.Message = strings.TrimSpace(input.Message)
	if input.Name == "" {
		return ErrNameRequired
	}
	if !IsValidEmail(input.Email) {
		return ErrEmailInvalid
	}
	if input.Message == "" {
		return ErrMessageRequired
	}

	first, last := splitName(input.Name)
	info := platform.ContactInfo{
		Name:   &platform.ContactName{First: first, Last: last},
		Emails: []platform.ContactEmail{{Tag: "MAIN", Email: input.Email}},
		ExtendedFields: map[string]string{
			"custom.servicio": input.Service,
			"custom.mensaje":  input.Message,
		},
	}
	if input.Phone != "" {
		info.Phones = []platform.ContactPhone{{Tag: "MOBILE", Phone: input.Phone, CountryCode: "MX"}}
	}

	record := &models.ContactSubmission{
		Kind:      constants.ContactKindContact,
		Email:     input.Email,
		Name:      input.Name,
		Phone:     input.Phone,
		Service:   input.Service,
		Message:   input.Message,
		ClientIP:  input.ClientIP,
		RequestID: input.RequestID,
	}
	err := s.createContact(ctx, info, record)
	s.record(record)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContactFailed, err)
	}
	return nil
}

// Subscribe 订阅通讯；联系人已存在视为成功
func (s *ContactService) Subscribe(ctx context.Context, input NewsletterInput) error {
	email := strings.TrimSpace(input.Email)
	if !IsValidEmail(email) {
		return ErrEmailInvalid
	}
	record := &models.ContactSubmission{
		Kind:      constants.ContactKindNewsletter,
		Email:     email,
		ClientIP:  input.ClientIP,
		RequestID: input.RequestID,
	}
	err := s.createContact(ctx, platform.ContactInfo{
		Emails: []platform.ContactEmail{{Tag: "MAIN", Email: email}},
	}, record)
	s.record(record)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNewsletterFailed, err)
	}
	return nil
}

func (s *ContactService) createContact(ctx context.Context, info platform.ContactInfo, record *models.ContactSubmission) error {
	contactID, err := s.platform.CreateContact(ctx, info)
	switch {
	case err == nil:
		record.Status = constants.ContactStatusSynced
		record.ContactID = contactID
		return nil
	case platform.IsDuplicate(err):
		record.Status = constants.ContactStatusDuplicate
		return nil
	default:
		record.Status = constants.ContactStatusFailed
		record.Error = err.Error()
		logger.Errorw("crm_contact_create_failed",
			"kind", record.Kind,
			"request_id", record.RequestID,
			"error", err,
		)
		return err
	}
}

// record 留档失败只记日志，不影响提交结果
func (s *ContactService) record(record *models.ContactSubmission) {
	if s.submissions == nil {
		return
	}
	if err := s.submissions.Create(record); err != nil {
		logger.Warnw("contact_submission_record_failed",
			"kind", record.Kind,
			"status", record.Status,
			"error", err,
		)
	}
}

// splitName 第一个词为名，其余为姓
func splitName(full string) (string, string) {
	first, rest, _ := strings.Cut(strings.TrimSpace(full), " ")
	return first, strings.TrimSpace(rest)
}
