package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/restomueble/storefront/internal/constants"
	"github.com/restomueble/storefront/internal/models"
	"github.com/restomueble/storefront/internal/repository"

	"gorm.io/gorm"
)

func setupContactServiceTest(t *testing.T) (*ContactService, *fakePlatform, *gorm.DB) {
	t.Helper()
	fake := newFakePlatform()
	db := setupServiceTestDB(t)
	svc := NewContactService(fake.client(t), repository.NewContactSubmissionRepository(db))
	return svc, fake, db
}

func TestSubmitContactValidation(t *testing.T) {
	svc, fake, _ := setupContactServiceTest(t)
	ctx := context.Background()

	if err := svc.SubmitContact(ctx, ContactInput{Email: "a@b.co", Message: "hola"}); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected name required, got %v", err)
	}
	if err := svc.SubmitContact(ctx, ContactInput{Name: "Ana", Email: "no-es-correo", Message: "hola"}); !errors.Is(err, ErrEmailInvalid) {
		t.Fatalf("expected email invalid, got %v", err)
	}
	if err := svc.SubmitContact(ctx, ContactInput{Name: "Ana", Email: "ana@example.com", Message: "  "}); !errors.Is(err, ErrMessageRequired) {
		t.Fatalf("expected message required, got %v", err)
	}
	if len(fake.contactBodies) != 0 {
		t.Fatalf("invalid submissions must not reach the CRM")
	}
}

func TestSubmitContactCreatesContactAndRecords(t *testing.T) {
	svc, fake, db := setupContactServiceTest(t)

	err := svc.SubmitContact(context.Background(), ContactInput{
		Name:      "Ana María López",
		Email:     " ana@example.com ",
		Phone:     "5512345678",
		Service:   "sillas",
		Message:   "Necesito 40 sillas",
		RequestID: "req-1",
	})
	if err != nil {
		t.Fatalf("submit contact failed: %v", err)
	}
	info := fake.contactBodies[0]["info"].(map[string]interface{})
	name := info["name"].(map[string]interface{})
	if name["first"] != "Ana" || name["last"] != "María López" {
		t.Fatalf("unexpected name split: %+v", name)
	}

	var record models.ContactSubmission
	if err := db.First(&record).Error; err != nil {
		t.Fatalf("submission should be recorded: %v", err)
	}
	if record.Status != constants.ContactStatusSynced || record.ContactID != "contact-1" || record.Email != "ana@example.com" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestDuplicateContactCountsAsSuccess(t *testing.T) {
	svc, fake, db := setupContactServiceTest(t)
	fake.contactStatus = http.StatusConflict

	if err := svc.Subscribe(context.Background(), NewsletterInput{Email: "ana@example.com"}); err != nil {
		t.Fatalf("duplicate subscription should succeed: %v", err)
	}
	var record models.ContactSubmission
	if err := db.First(&record).Error; err != nil {
		t.Fatalf("submission should be recorded: %v", err)
	}
	if record.Kind != constants.ContactKindNewsletter || record.Status != constants.ContactStatusDuplicate {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestCRMFailureIsReportedAndRecorded(t *testing.T) {
	svc, fake, db := setupContactServiceTest(t)
	fake.contactStatus = http.StatusServiceUnavailable

	err := svc.SubmitContact(context.Background(), ContactInput{Name: "Ana", Email: "ana@example.com", Message: "hola"})
	if !errors.Is(err, ErrContactFailed) {
		t.Fatalf("expected contact failed, got %v", err)
	}
	if err := svc.Subscribe(context.Background(), NewsletterInput{Email: "ana@example.com"}); !errors.Is(err, ErrNewsletterFailed) {
		t.Fatalf("expected newsletter failed, got %v", err)
	}
	var failed int64
	db.Model(&models.ContactSubmission{}).Where("status = ?", constants.ContactStatusFailed).Count(&failed)
	if failed != 2 {
		t.Fatalf("failed submissions should be recorded, got %d", failed)
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", " ana.lopez@restomueble.com.mx "}
	invalid := []string{"", "ana", "ana@", "ana@dominio", "ana lopez@x.com", "@x.com"}
	for _, email := range valid {
		if !IsValidEmail(email) {
			t.Fatalf("%q should be valid", email)
		}
	}
	for _, email := range invalid {
		if IsValidEmail(email) {
			t.Fatalf("%q should be invalid", email)
		}
	}
}
