// internal/services/referral_service.go
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
)

type ReferralService struct {
	db                  *gorm.DB
	revisionService     *RevisionService
	notificationService *NotificationService
	eventService        *EventService
}

type SendReferralRequest struct {
	RefereeID uuid.UUID `json:"referee_id" validate:"required"`
	Text      string    `json:"text" validate:"max=4000"`
}

type CompleteReferralRequest struct {
	ReferralText string `json:"referral_text" validate:"required,max=4000"`
}

func NewReferralService(db *gorm.DB, revisionService *RevisionService, notificationService *NotificationService, eventService *EventService) *ReferralService {
	return &ReferralService{
		db:                  db,
		revisionService:     revisionService,
		notificationService: notificationService,
		eventService:        eventService,
	}
}

// Send refers a proposal under assessment to another staff member.
func (s *ReferralService) Send(actor Actor, proposalID uuid.UUID, req *SendReferralRequest) (*models.Referral, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	var proposal models.Proposal
	if err := s.db.First(&proposal, "id = ?", proposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if proposal.ProcessingStatus != models.ProposalStatusWithReferral &&
		!proposal.ProcessingStatus.CanTransitionTo(models.ProposalStatusWithReferral) {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.ProcessingStatus)
	}

	var referee models.EmailUser
	if err := s.db.First(&referee, "id = ?", req.RefereeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !referee.Role.IsStaff() {
		return nil, fmt.Errorf("%w: referee must be a staff member", ErrInvalidState)
	}

	referral := &models.Referral{
		ProposalID:       proposal.ID,
		RefereeID:        referee.ID,
		SentByID:         actor.ID,
		ProcessingStatus: models.ReferralStatusWithReferral,
		Text:             req.Text,
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(referral).Error; err != nil {
			return fmt.Errorf("failed to create referral: %w", err)
		}
		proposal.ProcessingStatus = models.ProposalStatusWithReferral
		proposal.CustomerStatus = customerStatusFor(proposal.ProcessingStatus)
		if err := tx.Model(&proposal).Select("processing_status", "customer_status").Updates(&proposal).Error; err != nil {
			return fmt.Errorf("failed to update proposal status: %w", err)
		}
		comment := fmt.Sprintf("Referral sent to %s, processing status with_referral", referee.FullName())
		return s.revisionService.Record(tx, actor.ref(), comment, &proposal, referral)
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.notificationService.SendReferralRequest(referral, &proposal, &referee); err != nil {
			logrus.WithError(err).WithField("referral_id", referral.ID).Warn("Failed to send referral email")
		}
	}()
	s.eventService.PublishAsync(EventReferralSent, map[string]interface{}{
		"referral_id": referral.ID.String(),
		"proposal_id": proposal.ID.String(),
	})

	referral.Referee = &referee
	return referral, nil
}

// Complete records the referee's comments and hands the proposal back to
// the assessor once no referral on it is outstanding.
func (s *ReferralService) Complete(actor Actor, referralID uuid.UUID, req *CompleteReferralRequest) (*models.Referral, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	referral, err := s.load(referralID)
	if err != nil {
		return nil, err
	}
	if referral.RefereeID != actor.ID {
		return nil, ErrUnauthorized
	}
	if referral.ProcessingStatus != models.ReferralStatusWithReferral {
		return nil, fmt.Errorf("%w: referral is %s", ErrInvalidState, referral.ProcessingStatus)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		referral.ProcessingStatus = models.ReferralStatusCompleted
		referral.ReferralText = req.ReferralText
		referral.CompletedAt = &now
		if err := tx.Model(referral).Select("processing_status", "referral_text", "completed_at").Updates(referral).Error; err != nil {
			return fmt.Errorf("failed to complete referral: %w", err)
		}
		return s.returnToAssessor(tx, actor, referral, "Referral completed")
	})
	if err != nil {
		return nil, err
	}
	return referral, nil
}

// Recall withdraws an outstanding referral.
func (s *ReferralService) Recall(actor Actor, referralID uuid.UUID) (*models.Referral, error) {
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}
	referral, err := s.load(referralID)
	if err != nil {
		return nil, err
	}
	if referral.ProcessingStatus != models.ReferralStatusWithReferral {
		return nil, fmt.Errorf("%w: referral is %s", ErrInvalidState, referral.ProcessingStatus)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		referral.ProcessingStatus = models.ReferralStatusRecalled
		if err := tx.Model(referral).Update("processing_status", referral.ProcessingStatus).Error; err != nil {
			return fmt.Errorf("failed to recall referral: %w", err)
		}
		return s.returnToAssessor(tx, actor, referral, "Referral recalled")
	})
	if err != nil {
		return nil, err
	}
	return referral, nil
}

// ListForProposal returns the proposal's referrals, oldest first.
func (s *ReferralService) ListForProposal(actor Actor, proposalID uuid.UUID) ([]models.Referral, error) {
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}
	referrals := []models.Referral{}
	if err := s.db.Preload("Referee").Where("proposal_id = ?", proposalID).Order("created_at").Find(&referrals).Error; err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}
	return referrals, nil
}

func (s *ReferralService) returnToAssessor(tx *gorm.DB, actor Actor, referral *models.Referral, comment string) error {
	var outstanding int64
	if err := tx.Model(&models.Referral{}).
		Where("proposal_id = ? AND processing_status = ?", referral.ProposalID, models.ReferralStatusWithReferral).
		Count(&outstanding).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	var proposal models.Proposal
	if err := tx.First(&proposal, "id = ?", referral.ProposalID).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	objects := []interface{}{referral}
	if outstanding == 0 && proposal.ProcessingStatus == models.ProposalStatusWithReferral {
		proposal.ProcessingStatus = models.ProposalStatusWithAssessor
		proposal.CustomerStatus = customerStatusFor(proposal.ProcessingStatus)
		if err := tx.Model(&proposal).Select("processing_status", "customer_status").Updates(&proposal).Error; err != nil {
			return fmt.Errorf("failed to update proposal status: %w", err)
		}
		comment += ", processing status with_assessor"
		objects = append(objects, &proposal)
	}
	return s.revisionService.Record(tx, actor.ref(), comment, objects...)
}

func (s *ReferralService) load(referralID uuid.UUID) (*models.Referral, error) {
	var referral models.Referral
	if err := s.db.First(&referral, "id = ?", referralID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &referral, nil
}
