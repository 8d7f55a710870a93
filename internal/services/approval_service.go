// internal/services/approval_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ApprovalService struct {
	db                  *gorm.DB
	revisionService     *RevisionService
	notificationService *NotificationService
	eventService        *EventService
}

type IssueApprovalRequest struct {
	StartDate  time.Time `json:"start_date" validate:"required"`
	ExpiryDate time.Time `json:"expiry_date" validate:"required,gtfield=StartDate"`
	Details    string    `json:"details" validate:"max=4000"`
}

type ApprovalStatusRequest struct {
	Status        models.ApprovalStatus `json:"status" validate:"required,oneof=surrendered cancelled suspended current"`
	Reason        string                `json:"reason" validate:"required,max=1000"`
	EffectiveDate *time.Time            `json:"effective_date,omitempty"`
}

type ApprovalSearchParams struct {
	utils.PaginationParams
	Status string
}

// ApprovalVerification is the public view of an approval.
type ApprovalVerification struct {
	LodgementNumber string                `json:"lodgement_number"`
	Status          models.ApprovalStatus `json:"status"`
	Holder          string                `json:"holder"`
	StartDate       time.Time             `json:"start_date"`
	ExpiryDate      time.Time             `json:"expiry_date"`
	IsValid         bool                  `json:"is_valid"`
}

func NewApprovalService(db *gorm.DB, revisionService *RevisionService, notificationService *NotificationService, eventService *EventService) *ApprovalService {
	return &ApprovalService{
		db:                  db,
		revisionService:     revisionService,
		notificationService: notificationService,
		eventService:        eventService,
	}
}

// Issue approves a proposal sitting with the approver and creates its
// approval.
func (s *ApprovalService) Issue(actor Actor, proposalID uuid.UUID, req *IssueApprovalRequest) (*models.Approval, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	var proposal models.Proposal
	if err := s.db.Preload("Applicant").First(&proposal, "id = ?", proposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !proposal.ProcessingStatus.CanTransitionTo(models.ProposalStatusApproved) {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.ProcessingStatus)
	}

	approval := &models.Approval{
		CurrentProposalID: proposal.ID,
		ApplicantID:       proposal.ApplicantID,
		Status:            models.ApprovalStatusCurrent,
		IssueDate:         time.Now().UTC(),
		StartDate:         req.StartDate,
		ExpiryDate:        req.ExpiryDate,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		number, err := nextLodgementNumber(tx, PrefixApproval)
		if err != nil {
			return err
		}
		approval.LodgementNumber = number
		if err := tx.Create(approval).Error; err != nil {
			return fmt.Errorf("failed to create approval: %w", err)
		}

		proposal.ProcessingStatus = models.ProposalStatusApproved
		proposal.CustomerStatus = customerStatusFor(proposal.ProcessingStatus)
		if err := tx.Model(&proposal).Select("processing_status", "customer_status").Updates(&proposal).Error; err != nil {
			return fmt.Errorf("failed to update proposal status: %w", err)
		}

		comment := fmt.Sprintf("Approval %s issued, processing status approved", approval.LodgementNumber)
		if req.Details != "" {
			comment += ": " + req.Details
		}
		return s.revisionService.Record(tx, actor.ref(), comment, &proposal, approval)
	})
	if err != nil {
		return nil, err
	}

	if proposal.Applicant != nil {
		applicant := proposal.Applicant
		go func() {
			if err := s.notificationService.SendApprovalIssued(approval, applicant); err != nil {
				logrus.WithError(err).WithField("approval", approval.LodgementNumber).Warn("Failed to send approval email")
			}
		}()
	}
	s.eventService.PublishAsync(EventApprovalIssued, map[string]interface{}{
		"approval_id":      approval.ID.String(),
		"lodgement_number": approval.LodgementNumber,
		"proposal_id":      proposal.ID.String(),
	})

	return approval, nil
}

func (s *ApprovalService) Get(actor Actor, approvalID uuid.UUID) (*models.Approval, error) {
	approval, err := s.load(s.db.Preload("CurrentProposal").Preload("Applicant"), approvalID)
	if err != nil {
		return nil, err
	}
	if !actor.canSee(approval.ApplicantID) {
		return nil, ErrUnauthorized
	}
	return approval, nil
}

func (s *ApprovalService) List(actor Actor, params ApprovalSearchParams) ([]models.Approval, int64, error) {
	query := s.db.Model(&models.Approval{}).Preload("Applicant")

	if !actor.IsStaff() {
		query = query.Where("applicant_id = ?", actor.ID)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Search != "" {
		query = query.Where("LOWER(lodgement_number) LIKE ?", "%"+strings.ToLower(params.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count approvals: %w", err)
	}

	allowedSortFields := []string{"created_at", "issue_date", "start_date", "expiry_date", "lodgement_number", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	approvals := []models.Approval{}
	if err := query.Find(&approvals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get approvals: %w", err)
	}
	return approvals, total, nil
}

// ChangeStatus surrenders, cancels, suspends or reinstates an approval.
// Holders may only surrender their own approvals.
func (s *ApprovalService) ChangeStatus(actor Actor, approvalID uuid.UUID, req *ApprovalStatusRequest) (*models.Approval, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	approval, err := s.load(s.db, approvalID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && (approval.ApplicantID != actor.ID || req.Status != models.ApprovalStatusSurrendered) {
		return nil, ErrUnauthorized
	}
	if !approvalTransitionAllowed(approval.Status, req.Status) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, approval.Status, req.Status)
	}

	effective := time.Now().UTC()
	if req.EffectiveDate != nil {
		effective = *req.EffectiveDate
	}
	details := models.JSONB{
		"reason":         req.Reason,
		"effective_date": effective.Format("2006-01-02"),
		"by":             actor.ID.String(),
	}

	columns := []string{"status"}
	switch req.Status {
	case models.ApprovalStatusSurrendered:
		approval.SurrenderDetails = details
		columns = append(columns, "surrender_details")
	case models.ApprovalStatusCancelled:
		approval.CancellationDetails = details
		columns = append(columns, "cancellation_details")
	case models.ApprovalStatusSuspended:
		approval.SuspensionDetails = details
		columns = append(columns, "suspension_details")
	}
	approval.Status = req.Status

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Model(approval).Select(columns).Updates(approval).Error; err != nil {
			return fmt.Errorf("failed to update approval: %w", err)
		}
		comment := fmt.Sprintf("Approval status changed to %s: %s", req.Status, req.Reason)
		return s.revisionService.Record(tx, actor.ref(), comment, approval)
	})
	if err != nil {
		return nil, err
	}

	s.eventService.PublishAsync(EventApprovalStatusChanged, map[string]interface{}{
		"approval_id": approval.ID.String(),
		"status":      string(approval.Status),
	})
	return approval, nil
}

// Verify looks an approval up by lodgement number for public checks.
func (s *ApprovalService) Verify(lodgementNumber string) (*ApprovalVerification, error) {
	var approval models.Approval
	err := s.db.Preload("Applicant").
		Where("lodgement_number = ?", strings.ToUpper(strings.TrimSpace(lodgementNumber))).
		First(&approval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	now := time.Now().UTC()
	result := &ApprovalVerification{
		LodgementNumber: approval.LodgementNumber,
		Status:          approval.Status,
		StartDate:       approval.StartDate,
		ExpiryDate:      approval.ExpiryDate,
		IsValid:         approval.Status == models.ApprovalStatusCurrent && !now.Before(approval.StartDate) && now.Before(approval.ExpiryDate),
	}
	if approval.Applicant != nil {
		result.Holder = approval.Applicant.FullName()
	}
	return result, nil
}

// ExpireDue marks current approvals past their expiry date as expired.
func (s *ApprovalService) ExpireDue(now time.Time) (int, error) {
	var due []models.Approval
	if err := s.db.Where("status = ? AND expiry_date < ?", models.ApprovalStatusCurrent, now).Find(&due).Error; err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	for i := range due {
		approval := &due[i]
		err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
			approval.Status = models.ApprovalStatusExpired
			if err := tx.Model(approval).Update("status", approval.Status).Error; err != nil {
				return err
			}
			return s.revisionService.Record(tx, nil, "Approval status changed to expired", approval)
		})
		if err != nil {
			return i, fmt.Errorf("failed to expire approval %s: %w", approval.LodgementNumber, err)
		}
	}
	return len(due), nil
}

func (s *ApprovalService) load(db *gorm.DB, approvalID uuid.UUID) (*models.Approval, error) {
	var approval models.Approval
	if err := db.First(&approval, "id = ?", approvalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &approval, nil
}

func approvalTransitionAllowed(from, to models.ApprovalStatus) bool {
	switch to {
	case models.ApprovalStatusSurrendered, models.ApprovalStatusCancelled, models.ApprovalStatusSuspended:
		return from == models.ApprovalStatusCurrent || (from == models.ApprovalStatusSuspended && to != models.ApprovalStatusSuspended)
	case models.ApprovalStatusCurrent:
		return from == models.ApprovalStatusSuspended
	}
	return false
}
