// internal/services/proposal_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/formschema"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type ProposalService struct {
	db                  *gorm.DB
	revisionService     *RevisionService
	storageService      *StorageService
	notificationService *NotificationService
	eventService        *EventService
}

type CreateProposalRequest struct {
	ProposalTypeID uuid.UUID `json:"proposal_type_id" validate:"required"`
}

type ProposalStatusRequest struct {
	Status models.ProposalProcessingStatus `json:"status" validate:"required"`
	Reason string                          `json:"reason" validate:"max=1000"`
}

type ProposalSearchParams struct {
	utils.PaginationParams
	Status string
}

// SaveFormRequest is a posted proposal form.
type SaveFormRequest struct {
	ProposalID uuid.UUID
	Schema     []byte
	Values     url.Values
	Files      map[string][]*multipart.FileHeader
}

func NewProposalService(db *gorm.DB, revisionService *RevisionService, storageService *StorageService, notificationService *NotificationService, eventService *EventService) *ProposalService {
	return &ProposalService{
		db:                  db,
		revisionService:     revisionService,
		storageService:      storageService,
		notificationService: notificationService,
		eventService:        eventService,
	}
}

func (s *ProposalService) Create(actor Actor, req *CreateProposalRequest) (*models.Proposal, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var proposalType models.ProposalType
	if err := s.db.First(&proposalType, "id = ?", req.ProposalTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if proposalType.ReplacedByID != nil {
		return nil, fmt.Errorf("%w: proposal type %s has been replaced", ErrInvalidState, proposalType.Name)
	}

	proposal := &models.Proposal{
		ProposalTypeID:   proposalType.ID,
		ApplicantID:      actor.ID,
		Schema:           proposalType.Schema,
		Data:             models.JSONList{},
		ProcessingStatus: models.ProposalStatusDraft,
		CustomerStatus:   models.CustomerStatusDraft,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(proposal).Error; err != nil {
			return fmt.Errorf("failed to create proposal: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Proposal created", proposal)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

func (s *ProposalService) Get(actor Actor, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.load(s.db.Preload("ProposalType").Preload("Applicant").Preload("Documents"), proposalID)
	if err != nil {
		return nil, err
	}
	if !actor.canSee(proposal.ApplicantID) {
		return nil, ErrUnauthorized
	}
	return proposal, nil
}

// List returns the caller's proposals, or every proposal for staff.
func (s *ProposalService) List(actor Actor, params ProposalSearchParams) ([]models.Proposal, int64, error) {
	query := s.db.Model(&models.Proposal{}).Preload("ProposalType")

	if !actor.IsStaff() {
		query = query.Where("applicant_id = ?", actor.ID)
	}
	if params.Status != "" {
		query = query.Where("processing_status = ?", params.Status)
	}
	if params.Search != "" {
		query = query.Where("LOWER(lodgement_number) LIKE ?", "%"+strings.ToLower(params.Search)+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count proposals: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "lodgement_date", "lodgement_number", "processing_status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	proposals := []models.Proposal{}
	if err := query.Find(&proposals).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to get proposals: %w", err)
	}
	return proposals, total, nil
}

// SaveForm extracts field data from a posted form and stores it, together
// with the schema it was posted against, on the proposal.
func (s *ProposalService) SaveForm(ctx context.Context, actor Actor, req *SaveFormRequest) (*models.Proposal, error) {
	proposal, err := s.load(s.db, req.ProposalID)
	if err != nil {
		return nil, err
	}
	if !actor.canSee(proposal.ApplicantID) {
		return nil, ErrUnauthorized
	}
	if !actor.IsStaff() && !proposal.IsEditable() {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.ProcessingStatus)
	}

	schema, err := formschema.Parse(req.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	var rawSchema models.JSONList
	if err := json.Unmarshal(req.Schema, &rawSchema); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	extracted, err := formschema.Extract(schema, req.Values, req.Files)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var docs []models.Document
		for _, field := range schema.FileFields() {
			for key, headers := range req.Files {
				if !fileFieldMatches(field, key) {
					continue
				}
				for _, header := range headers {
					doc, err := s.storageService.StoreDocument(ctx, tx, header, s.storageService.GetDefaultUploadOptions("proposals"), actor.ref())
					if err != nil {
						return err
					}
					docs = append(docs, *doc)
				}
			}
		}
		if len(docs) > 0 {
			if err := tx.Model(proposal).Association("Documents").Append(docs); err != nil {
				return fmt.Errorf("failed to attach documents: %w", err)
			}
		}

		proposal.Schema = rawSchema
		proposal.Data = models.JSONList(extracted)
		if err := tx.Model(proposal).Select("schema", "data").Updates(proposal).Error; err != nil {
			return fmt.Errorf("failed to save proposal: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Proposal form saved", proposal)
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// Submit lodges a draft proposal with the assessors.
func (s *ProposalService) Submit(actor Actor, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.load(s.db.Preload("Applicant"), proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ApplicantID != actor.ID {
		return nil, ErrUnauthorized
	}
	if proposal.ProcessingStatus != models.ProposalStatusDraft && proposal.ProcessingStatus != models.ProposalStatusAwaitingDocuments {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.ProcessingStatus)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if proposal.LodgementNumber == "" {
			number, err := nextLodgementNumber(tx, PrefixProposal)
			if err != nil {
				return err
			}
			proposal.LodgementNumber = number
		}
		now := time.Now().UTC()
		proposal.LodgementDate = &now
		proposal.ProcessingStatus = models.ProposalStatusWithAssessor
		proposal.CustomerStatus = models.CustomerStatusUnderReview

		if err := tx.Model(proposal).
			Select("lodgement_number", "lodgement_date", "processing_status", "customer_status").
			Updates(proposal).Error; err != nil {
			return fmt.Errorf("failed to submit proposal: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Proposal submitted, processing status with_assessor", proposal)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.notificationService.SendProposalSubmitted(proposal, proposal.Applicant); err != nil {
			logrus.WithError(err).WithField("proposal", proposal.LodgementNumber).Warn("Failed to send submission email")
		}
	}()
	s.eventService.PublishAsync(EventProposalSubmitted, map[string]interface{}{
		"proposal_id":      proposal.ID.String(),
		"lodgement_number": proposal.LodgementNumber,
	})

	return proposal, nil
}

// ChangeStatus moves a proposal through assessment.
func (s *ProposalService) ChangeStatus(actor Actor, proposalID uuid.UUID, req *ProposalStatusRequest) (*models.Proposal, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	proposal, err := s.load(s.db.Preload("Applicant"), proposalID)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.transition(tx, actor, proposal, req.Status, req.Reason)
	})
	if err != nil {
		return nil, err
	}

	s.afterStatusChange(proposal)
	return proposal, nil
}

// Discard withdraws a draft owned by the caller.
func (s *ProposalService) Discard(actor Actor, proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.load(s.db, proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ApplicantID != actor.ID {
		return nil, ErrUnauthorized
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		return s.transition(tx, actor, proposal, models.ProposalStatusDiscarded, "")
	})
	if err != nil {
		return nil, err
	}
	return proposal, nil
}

// transition applies a processing status change and versions it using tx.
func (s *ProposalService) transition(tx *gorm.DB, actor Actor, proposal *models.Proposal, next models.ProposalProcessingStatus, reason string) error {
	if !proposal.ProcessingStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidState, proposal.ProcessingStatus, next)
	}

	proposal.ProcessingStatus = next
	proposal.CustomerStatus = customerStatusFor(next)
	if err := tx.Model(proposal).Select("processing_status", "customer_status").Updates(proposal).Error; err != nil {
		return fmt.Errorf("failed to update proposal status: %w", err)
	}

	comment := fmt.Sprintf("Processing status changed to %s", next)
	if reason != "" {
		comment += ": " + reason
	}
	return s.revisionService.Record(tx, actor.ref(), comment, proposal)
}

func (s *ProposalService) afterStatusChange(proposal *models.Proposal) {
	if proposal.Applicant != nil {
		applicant := proposal.Applicant
		go func() {
			if err := s.notificationService.SendProposalStatusChanged(proposal, applicant); err != nil {
				logrus.WithError(err).WithField("proposal", proposal.LodgementNumber).Warn("Failed to send status email")
			}
		}()
	}
	s.eventService.PublishAsync(EventProposalStatusChanged, map[string]interface{}{
		"proposal_id": proposal.ID.String(),
		"status":      string(proposal.ProcessingStatus),
	})
}

func (s *ProposalService) load(db *gorm.DB, proposalID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := db.First(&proposal, "id = ?", proposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &proposal, nil
}

func customerStatusFor(status models.ProposalProcessingStatus) models.ProposalCustomerStatus {
	switch status {
	case models.ProposalStatusDraft:
		return models.CustomerStatusDraft
	case models.ProposalStatusAwaitingDocuments:
		return models.CustomerStatusAmendment
	case models.ProposalStatusApproved:
		return models.CustomerStatusApproved
	case models.ProposalStatusDeclined:
		return models.CustomerStatusDeclined
	case models.ProposalStatusDiscarded:
		return models.CustomerStatusDiscarded
	default:
		return models.CustomerStatusUnderReview
	}
}

// fileFieldMatches reports whether a posted file key belongs to a schema
// file field, either directly or as a repeated "<name>-<n>" entry.
func fileFieldMatches(field, key string) bool {
	if key == field {
		return true
	}
	if len(key) <= len(field)+1 || key[:len(field)] != field || key[len(field)] != '-' {
		return false
	}
	for _, r := range key[len(field)+1:] {
		if (r < '0' || r > '9') && r != '-' {
			return false
		}
	}
	return true
}
