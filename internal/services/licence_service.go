// internal/services/licence_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/pdf"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// LicenceService serves wildlife licences and their renewal notices.
type LicenceService struct {
	db                  *gorm.DB
	notificationService *NotificationService
	eventService        *EventService
}

type LicenceSearchParams struct {
	utils.PaginationParams
	HolderID *uuid.UUID
}

// BulkRenewalRequest selects licences by number or holder name, by id, or
// both.
type BulkRenewalRequest struct {
	Query string      `json:"query" form:"query"`
	IDs   []uuid.UUID `json:"ids" form:"ids"`
}

// RenderedPDF is a generated document ready to stream.
type RenderedPDF struct {
	Filename string
	Content  []byte
}

func NewLicenceService(db *gorm.DB, notificationService *NotificationService, eventService *EventService) *LicenceService {
	return &LicenceService{
		db:                  db,
		notificationService: notificationService,
		eventService:        eventService,
	}
}

func (s *LicenceService) List(params LicenceSearchParams) ([]models.WildlifeLicence, int64, error) {
	query := s.db.Model(&models.WildlifeLicence{}).Preload("Holder")
	if params.HolderID != nil {
		query = query.Where("holder_id = ?", *params.HolderID)
	}
	if params.Search != "" {
		query = s.matching(query, params.Search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licences: %w", err)
	}

	allowedSortFields := []string{"created_at", "licence_number", "end_date", "issue_date"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	licences := []models.WildlifeLicence{}
	if err := query.Find(&licences).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get licences: %w", err)
	}
	return licences, total, nil
}

func (s *LicenceService) Get(licenceID uuid.UUID) (*models.WildlifeLicence, error) {
	var licence models.WildlifeLicence
	err := s.db.Preload("Holder").Preload("Profile.PostalAddress").First(&licence, "id = ?", licenceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &licence, nil
}

// RenewalPDF renders the renewal notice for one licence.
func (s *LicenceService) RenewalPDF(licenceID uuid.UUID, siteURL string) (*RenderedPDF, error) {
	licence, err := s.Get(licenceID)
	if err != nil {
		return nil, err
	}
	content, err := pdf.LicenceRenewal(licence, siteURL)
	if err != nil {
		return nil, err
	}
	return &RenderedPDF{
		Filename: fmt.Sprintf("%s-%d-renewal.pdf", licence.LicenceNumber, licence.LicenceSequence),
		Content:  content,
	}, nil
}

// BulkRenewalPDF renders notices for every selected licence. An empty
// selection yields the cover page only.
func (s *LicenceService) BulkRenewalPDF(req *BulkRenewalRequest, siteURL string) (*RenderedPDF, error) {
	licences := []models.WildlifeLicence{}
	query := strings.TrimSpace(req.Query)
	if query != "" || len(req.IDs) > 0 {
		q := s.db.Model(&models.WildlifeLicence{}).Preload("Holder").Preload("Profile.PostalAddress")
		if query != "" {
			q = s.matching(q, query)
		}
		if len(req.IDs) > 0 {
			q = q.Where("wildlife_licences.id IN ?", req.IDs)
		}
		if err := q.Order("licence_number").Order("licence_sequence").Find(&licences).Error; err != nil {
			return nil, fmt.Errorf("failed to get licences: %w", err)
		}
	}

	content, err := pdf.BulkLicenceRenewal(licences, siteURL)
	if err != nil {
		return nil, err
	}
	return &RenderedPDF{Filename: "bulk-renewals.pdf", Content: content}, nil
}

// SendRenewalNotices emails holders of renewable licences ending within
// the notice window and flags them so each is only sent once.
func (s *LicenceService) SendRenewalNotices(now time.Time, window time.Duration) (int, error) {
	var due []models.WildlifeLicence
	err := s.db.Preload("Holder").
		Where("is_renewable = ? AND renewal_sent = ?", true, false).
		Where("end_date IS NOT NULL AND end_date >= ? AND end_date <= ?", now, now.Add(window)).
		Find(&due).Error
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}

	sent := 0
	for i := range due {
		licence := &due[i]
		if licence.Holder == nil {
			continue
		}
		if err := s.notificationService.SendLicenceRenewalNotice(licence, licence.Holder); err != nil {
			logrus.WithError(err).WithField("licence", licence.Reference()).Warn("Failed to send renewal notice")
			continue
		}
		if err := s.db.Model(licence).Update("renewal_sent", true).Error; err != nil {
			return sent, fmt.Errorf("failed to flag renewal notice: %w", err)
		}
		s.eventService.PublishAsync(EventLicenceRenewalDue, map[string]interface{}{
			"licence_id": licence.ID.String(),
			"licence":    licence.Reference(),
		})
		sent++
	}
	return sent, nil
}

// matching filters licences whose number or holder name contains term.
func (s *LicenceService) matching(query *gorm.DB, term string) *gorm.DB {
	like := "%" + strings.ToLower(term) + "%"
	holders := s.db.Model(&models.EmailUser{}).Select("id").
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?", like, like, like)
	return query.Where("LOWER(wildlife_licences.licence_number) LIKE ? OR wildlife_licences.holder_id IN (?)", like, holders)
}
