// internal/services/compliance_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ComplianceService struct {
	db                  *gorm.DB
	revisionService     *RevisionService
	notificationService *NotificationService
	eventService        *EventService
}

type CreateComplianceRequest struct {
	ApprovalID  uuid.UUID `json:"approval_id" validate:"required"`
	Requirement string    `json:"requirement" validate:"required,max=4000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

type SubmitComplianceRequest struct {
	Text string `json:"text" validate:"required,max=8000"`
}

type AssessComplianceRequest struct {
	Accept bool   `json:"accept"`
	Reason string `json:"reason" validate:"max=1000"`
}

type ComplianceSearchParams struct {
	utils.PaginationParams
	ApprovalID *uuid.UUID
	Status     string
}

func NewComplianceService(db *gorm.DB, revisionService *RevisionService, notificationService *NotificationService, eventService *EventService) *ComplianceService {
	return &ComplianceService{
		db:                  db,
		revisionService:     revisionService,
		notificationService: notificationService,
		eventService:        eventService,
	}
}

// Create attaches a requirement with a due date to a current approval.
func (s *ComplianceService) Create(actor Actor, req *CreateComplianceRequest) (*models.Compliance, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	var approval models.Approval
	if err := s.db.First(&approval, "id = ?", req.ApprovalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if approval.Status != models.ApprovalStatusCurrent {
		return nil, fmt.Errorf("%w: approval is %s", ErrInvalidState, approval.Status)
	}

	compliance := &models.Compliance{
		ProposalID:       approval.CurrentProposalID,
		ApprovalID:       approval.ID,
		DueDate:          req.DueDate,
		ProcessingStatus: models.ComplianceStatusFuture,
		CustomerStatus:   models.CustomerStatusDraft,
		Requirement:      req.Requirement,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		number, err := nextLodgementNumber(tx, PrefixCompliance)
		if err != nil {
			return err
		}
		compliance.LodgementNumber = number
		if err := tx.Create(compliance).Error; err != nil {
			return fmt.Errorf("failed to create compliance: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Compliance requirement created", compliance)
	})
	if err != nil {
		return nil, err
	}
	return compliance, nil
}

func (s *ComplianceService) Get(actor Actor, complianceID uuid.UUID) (*models.Compliance, error) {
	compliance, err := s.load(s.db.Preload("Approval"), complianceID)
	if err != nil {
		return nil, err
	}
	if compliance.Approval == nil {
		return nil, ErrNotFound
	}
	if !actor.canSee(compliance.Approval.ApplicantID) {
		return nil, ErrUnauthorized
	}
	return compliance, nil
}

func (s *ComplianceService) List(actor Actor, params ComplianceSearchParams) ([]models.Compliance, int64, error) {
	query := s.db.Model(&models.Compliance{}).Preload("Approval")

	if !actor.IsStaff() {
		query = query.Where("approval_id IN (?)", s.db.Model(&models.Approval{}).Select("id").Where("applicant_id = ?", actor.ID))
	}
	if params.ApprovalID != nil {
		query = query.Where("approval_id = ?", *params.ApprovalID)
	}
	if params.Status != "" {
		query = query.Where("processing_status = ?", params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count compliances: %w", err)
	}

	allowedSortFields := []string{"created_at", "due_date", "lodgement_number", "processing_status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	compliances := []models.Compliance{}
	if err := query.Find(&compliances).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get compliances: %w", err)
	}
	return compliances, total, nil
}

// Submit lodges the holder's response to a requirement.
func (s *ComplianceService) Submit(actor Actor, complianceID uuid.UUID, req *SubmitComplianceRequest) (*models.Compliance, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	compliance, err := s.load(s.db.Preload("Approval"), complianceID)
	if err != nil {
		return nil, err
	}
	if compliance.Approval == nil || compliance.Approval.ApplicantID != actor.ID {
		return nil, ErrUnauthorized
	}
	switch compliance.ProcessingStatus {
	case models.ComplianceStatusFuture, models.ComplianceStatusDue, models.ComplianceStatusOverdue:
	default:
		return nil, fmt.Errorf("%w: compliance is %s", ErrInvalidState, compliance.ProcessingStatus)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		compliance.Text = req.Text
		compliance.LodgementDate = &now
		compliance.ProcessingStatus = models.ComplianceStatusWithAssessor
		compliance.CustomerStatus = models.CustomerStatusUnderReview
		if err := tx.Model(compliance).
			Select("text", "lodgement_date", "processing_status", "customer_status").
			Updates(compliance).Error; err != nil {
			return fmt.Errorf("failed to submit compliance: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Compliance submitted, processing status with_assessor", compliance)
	})
	if err != nil {
		return nil, err
	}
	return compliance, nil
}

// Assess accepts a submitted compliance or returns it to the holder.
func (s *ComplianceService) Assess(actor Actor, complianceID uuid.UUID, req *AssessComplianceRequest) (*models.Compliance, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	compliance, err := s.load(s.db, complianceID)
	if err != nil {
		return nil, err
	}
	if compliance.ProcessingStatus != models.ComplianceStatusWithAssessor {
		return nil, fmt.Errorf("%w: compliance is %s", ErrInvalidState, compliance.ProcessingStatus)
	}

	var comment string
	if req.Accept {
		compliance.ProcessingStatus = models.ComplianceStatusApproved
		compliance.CustomerStatus = models.CustomerStatusApproved
		comment = "Compliance accepted, processing status approved"
	} else {
		compliance.ProcessingStatus = dueStatus(compliance.DueDate, time.Now().UTC())
		compliance.CustomerStatus = models.CustomerStatusAmendment
		compliance.ReminderSent = false
		comment = fmt.Sprintf("Compliance amendment requested, processing status %s", compliance.ProcessingStatus)
	}
	if req.Reason != "" {
		comment += ": " + req.Reason
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(compliance).
			Select("processing_status", "customer_status", "reminder_sent").
			Updates(compliance).Error; err != nil {
			return fmt.Errorf("failed to update compliance: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), comment, compliance)
	})
	if err != nil {
		return nil, err
	}
	return compliance, nil
}

// MarkDueAndOverdue moves open requirements into due or overdue relative to
// now and returns how many changed.
func (s *ComplianceService) MarkDueAndOverdue(now time.Time, dueWithin time.Duration) (int, error) {
	var open []models.Compliance
	err := s.db.Where("processing_status IN ?", []models.ComplianceStatus{models.ComplianceStatusFuture, models.ComplianceStatusDue}).
		Where("due_date <= ?", now.Add(dueWithin)).
		Find(&open).Error
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}

	changed := 0
	for i := range open {
		compliance := &open[i]
		next := models.ComplianceStatusDue
		if compliance.DueDate.Before(now) {
			next = models.ComplianceStatusOverdue
		}
		if next == compliance.ProcessingStatus {
			continue
		}
		compliance.ProcessingStatus = next
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			if err := tx.Model(compliance).Update("processing_status", next).Error; err != nil {
				return err
			}
			return s.revisionService.Record(tx, nil, fmt.Sprintf("Compliance processing status changed to %s", next), compliance)
		})
		if err != nil {
			return changed, fmt.Errorf("failed to update compliance %s: %w", compliance.LodgementNumber, err)
		}
		changed++
	}
	return changed, nil
}

// SendReminders emails holders of due or overdue requirements that have
// not been reminded yet.
func (s *ComplianceService) SendReminders() (int, error) {
	var pending []models.Compliance
	err := s.db.Preload("Approval.Applicant").
		Where("processing_status IN ? AND reminder_sent = ?", []models.ComplianceStatus{models.ComplianceStatusDue, models.ComplianceStatusOverdue}, false).
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}

	sent := 0
	for i := range pending {
		compliance := &pending[i]
		if compliance.Approval == nil || compliance.Approval.Applicant == nil {
			continue
		}
		if err := s.notificationService.SendComplianceReminder(compliance, compliance.Approval.Applicant); err != nil {
			logrus.WithError(err).WithField("compliance", compliance.LodgementNumber).Warn("Failed to send compliance reminder")
			continue
		}
		if err := s.db.Model(compliance).Update("reminder_sent", true).Error; err != nil {
			return sent, fmt.Errorf("failed to flag reminder: %w", err)
		}
		s.eventService.PublishAsync(EventComplianceDue, map[string]interface{}{
			"compliance_id":    compliance.ID.String(),
			"lodgement_number": compliance.LodgementNumber,
			"status":           string(compliance.ProcessingStatus),
		})
		sent++
	}
	return sent, nil
}

func (s *ComplianceService) load(db *gorm.DB, complianceID uuid.UUID) (*models.Compliance, error) {
	var compliance models.Compliance
	if err := db.First(&compliance, "id = ?", complianceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &compliance, nil
}

func dueStatus(dueDate, now time.Time) models.ComplianceStatus {
	if dueDate.Before(now) {
		return models.ComplianceStatusOverdue
	}
	return models.ComplianceStatusDue
}
