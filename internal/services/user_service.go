// internal/services/user_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// UserService covers a customer's own account: identification, account
// details and documents, plus the officer customer search.
type UserService struct {
	db             *gorm.DB
	storageService *StorageService
	eventService   *EventService
}

type CustomerSearchResult struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

type UpdateAccountRequest struct {
	FirstName string `json:"first_name" validate:"required,max=128"`
	LastName  string `json:"last_name" validate:"required,max=128"`
	DOB       string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
}

// AccountOutcome tells the caller which message to show after a save.
type AccountOutcome string

const (
	AccountSaved                 AccountOutcome = "saved"
	AccountNameChanged           AccountOutcome = "name_changed"
	AccountIdentificationMissing AccountOutcome = "identification_missing"
)

type IdentificationInfo struct {
	FileTypes          string `json:"file_types"`
	ExistingIDImageURL string `json:"existing_id_image_url,omitempty"`
}

func NewUserService(db *gorm.DB, storageService *StorageService, eventService *EventService) *UserService {
	return &UserService{
		db:             db,
		storageService: storageService,
		eventService:   eventService,
	}
}

func (s *UserService) GetUserByID(userID uuid.UUID) (*models.EmailUser, error) {
	var user models.EmailUser
	if err := s.db.Preload("Identification").First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// SearchCustomers matches customers whose first or last name contains q.
func (s *UserService) SearchCustomers(q string) ([]CustomerSearchResult, error) {
	results := []CustomerSearchResult{}
	q = strings.TrimSpace(q)
	if q == "" {
		return results, nil
	}

	pattern := "%" + strings.ToLower(q) + "%"
	var users []models.EmailUser
	err := s.db.Where("role = ?", models.UserRoleCustomer).
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", pattern, pattern).
		Order("last_name, first_name").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	for i := range users {
		results = append(results, CustomerSearchResult{ID: users[i].ID, Text: users[i].FullNameDOB()})
	}
	return results, nil
}

// UpdateAccount saves the caller's details and reports which follow-up the
// user needs: a changed name requires fresh identification.
func (s *UserService) UpdateAccount(userID uuid.UUID, req *UpdateAccountRequest) (*models.EmailUser, AccountOutcome, error) {
	if err := validate(req); err != nil {
		return nil, "", err
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, "", err
	}

	nameChanged := user.FirstName != req.FirstName || user.LastName != req.LastName

	user.FirstName = req.FirstName
	user.LastName = req.LastName
	if req.DOB != "" {
		dob, _ := time.Parse("2006-01-02", req.DOB)
		user.DOB = &dob
	}

	if err := s.db.Model(user).Select("first_name", "last_name", "dob").Updates(user).Error; err != nil {
		return nil, "", fmt.Errorf("failed to update account: %w", err)
	}

	switch {
	case nameChanged:
		return user, AccountNameChanged, nil
	case user.IdentificationID == nil:
		return user, AccountIdentificationMissing, nil
	default:
		return user, AccountSaved, nil
	}
}

func (s *UserService) GetIdentification(userID uuid.UUID) (*IdentificationInfo, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	info := &IdentificationInfo{FileTypes: strings.Join(IdentificationFileTypes, ", ")}
	if user.Identification != nil {
		info.ExistingIDImageURL = user.Identification.URL
	}
	return info, nil
}

// UploadIdentification replaces the caller's identification document.
func (s *UserService) UploadIdentification(ctx context.Context, userID uuid.UUID, header *multipart.FileHeader) (*models.Document, error) {
	if !AllowedFileType(header.Filename, IdentificationFileTypes) {
		return nil, &ValidationError{Fields: []utils.ValidationError{{
			Field:   "identification_file",
			Tag:     "file_type",
			Message: "File type not allowed. Allowed types: " + strings.Join(IdentificationFileTypes, ", "),
		}}}
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	previous := user.Identification

	var doc *models.Document
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var err error
		doc, err = s.storageService.StoreDocument(ctx, tx, header, s.storageService.GetDefaultUploadOptions("identification"), &userID)
		if err != nil {
			return err
		}

		if previous != nil {
			if err := tx.Model(user).Association("Documents").Delete(previous); err != nil {
				return fmt.Errorf("failed to detach previous identification: %w", err)
			}
			if err := tx.Delete(previous).Error; err != nil {
				return fmt.Errorf("failed to delete previous identification: %w", err)
			}
		}

		// owner carries only the ID so the stale preloaded identification
		// is not saved back by the association append
		owner := &models.EmailUser{}
		owner.ID = user.ID
		if err := tx.Model(owner).UpdateColumn("identification_id", doc.ID).Error; err != nil {
			return fmt.Errorf("failed to set identification: %w", err)
		}
		return tx.Model(owner).Association("Documents").Append(doc)
	})
	if err != nil {
		return nil, err
	}

	if previous != nil {
		if err := s.storageService.DeleteFile(ctx, previous.FileKey); err != nil {
			logrus.WithError(err).WithField("key", previous.FileKey).Warn("Failed to remove replaced identification file")
		}
	}

	s.eventService.PublishAsync(EventIdentificationUploaded, map[string]interface{}{
		"user_id":     user.ID.String(),
		"document_id": doc.ID.String(),
	})

	return doc, nil
}

func (s *UserService) ListDocuments(userID uuid.UUID) ([]models.Document, error) {
	user := &models.EmailUser{}
	user.ID = userID

	documents := []models.Document{}
	if err := s.db.Model(user).Order("created_at DESC").Association("Documents").Find(&documents); err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return documents, nil
}

// OpenDocument streams a stored document. Customers may open documents they
// uploaded or that are attached to their account; staff may open any.
func (s *UserService) OpenDocument(ctx context.Context, actor Actor, documentID uuid.UUID) (*models.Document, io.ReadCloser, error) {
	var doc models.Document
	if err := s.db.First(&doc, "id = ?", documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	if !actor.IsStaff() && (doc.UploadedBy == nil || *doc.UploadedBy != actor.ID) {
		var attached int64
		err := s.db.Table("user_documents").
			Where("email_user_id = ? AND document_id = ?", actor.ID, doc.ID).
			Count(&attached).Error
		if err != nil {
			return nil, nil, fmt.Errorf("database error: %w", err)
		}
		if attached == 0 {
			return nil, nil, ErrUnauthorized
		}
	}

	file, err := s.storageService.OpenFile(ctx, doc.FileKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open document: %w", err)
	}
	return &doc, file, nil
}
