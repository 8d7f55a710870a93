// internal/services/comms_log_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// CommsLogService records officer communications with customers.
type CommsLogService struct {
	db             *gorm.DB
	storageService *StorageService
}

type CommsLogEntryRequest struct {
	Type    models.CommunicationType `json:"type" form:"type" validate:"required,oneof=email phone mail person"`
	To      string                   `json:"to" form:"to" validate:"max=200"`
	Fromm   string                   `json:"fromm" form:"fromm" validate:"max=200"`
	Subject string                   `json:"subject" form:"subject" validate:"max=200"`
	Text    string                   `json:"text" form:"text"`
}

func NewCommsLogService(db *gorm.DB, storageService *StorageService) *CommsLogService {
	return &CommsLogService{db: db, storageService: storageService}
}

// List returns the entries where the user was the officer or the customer,
// oldest first.
func (s *CommsLogService) List(userID uuid.UUID) ([]models.CommunicationsLogEntry, error) {
	entries := []models.CommunicationsLogEntry{}
	err := s.db.Preload("Documents").
		Where("officer_id = ? OR customer_id = ?", userID, userID).
		Order("created_at").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get communications log: %w", err)
	}
	return entries, nil
}

// Add logs a communication with customerID by the officer, with an
// optional attachment.
func (s *CommsLogService) Add(ctx context.Context, officer Actor, customerID uuid.UUID, req *CommsLogEntryRequest, attachment *multipart.FileHeader) (*models.CommunicationsLogEntry, error) {
	if !officer.IsStaff() {
		return nil, ErrUnauthorized
	}

	var customer models.EmailUser
	if err := s.db.Select("id").First(&customer, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	entry := &models.CommunicationsLogEntry{
		CustomerID: customer.ID,
		OfficerID:  officer.ref(),
		Type:       req.Type,
		To:         req.To,
		Fromm:      req.Fromm,
		Subject:    req.Subject,
		Text:       req.Text,
	}

	var uploaded *models.Document
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to create communications log entry: %w", err)
		}
		if attachment == nil {
			return nil
		}
		doc, err := s.storageService.StoreDocument(ctx, tx, attachment, s.storageService.GetDefaultUploadOptions("comms_log"), officer.ref())
		if errors.Is(err, ErrFileRejected) {
			return &ValidationError{Fields: []utils.ValidationError{{Field: "attachment", Tag: "file", Message: err.Error()}}}
		}
		if err != nil {
			return err
		}
		uploaded = doc
		if err := tx.Model(entry).Association("Documents").Append(doc); err != nil {
			return fmt.Errorf("failed to attach document: %w", err)
		}
		return nil
	})
	if err != nil {
		if uploaded != nil {
			if derr := s.storageService.DeleteFile(ctx, uploaded.FileKey); derr != nil {
				logrus.WithError(derr).WithField("key", uploaded.FileKey).Warn("Failed to remove orphaned attachment")
			}
		}
		return nil, err
	}
	return entry, nil
}
