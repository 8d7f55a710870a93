// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/models"
)

var (
	ErrPaymentNotConfigured = errors.New("payments are not configured")
	ErrAlreadyPaid          = fmt.Errorf("%w: application fee already paid", ErrInvalidState)
	ErrNoFeeDue             = fmt.Errorf("%w: no application fee is due", ErrInvalidState)
)

// PaymentService collects proposal application fees through Stripe.
type PaymentService struct {
	db              *gorm.DB
	config          *config.Config
	revisionService *RevisionService
	eventService    *EventService

	newIntent func(*stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	getIntent func(id string) (*stripe.PaymentIntent, error)
	newRefund func(*stripe.RefundParams) (*stripe.Refund, error)
}

type PaymentIntentResponse struct {
	ClientSecret   string  `json:"client_secret"`
	PaymentID      string  `json:"payment_id"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PublishableKey string  `json:"publishable_key"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func NewPaymentService(db *gorm.DB, config *config.Config, revisionService *RevisionService, eventService *EventService) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		db:              db,
		config:          config,
		revisionService: revisionService,
		eventService:    eventService,
		newIntent:       paymentintent.New,
		getIntent: func(id string) (*stripe.PaymentIntent, error) {
			return paymentintent.Get(id, nil)
		},
		newRefund: refund.New,
	}
}

// CreatePaymentIntent starts payment of a proposal's application fee.
func (s *PaymentService) CreatePaymentIntent(actor Actor, proposalID uuid.UUID) (*PaymentIntentResponse, error) {
	if s.config.Payment.StripeSecretKey == "" {
		return nil, ErrPaymentNotConfigured
	}

	proposal, err := s.loadProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.ApplicantID != actor.ID {
		return nil, ErrUnauthorized
	}
	if proposal.FeePaid {
		return nil, ErrAlreadyPaid
	}
	fee := proposal.ProposalType.ApplicationFee
	if fee <= 0 {
		return nil, ErrNoFeeDue
	}

	currency := s.config.Payment.Currency
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(fee)),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("proposal_id", proposal.ID.String())
	params.AddMetadata("applicant_id", actor.ID.String())
	if proposal.LodgementNumber != "" {
		params.AddMetadata("lodgement_number", proposal.LodgementNumber)
	}

	pi, err := s.newIntent(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret:   pi.ClientSecret,
		PaymentID:      pi.ID,
		Status:         string(pi.Status),
		Amount:         fee,
		Currency:       currency,
		PublishableKey: s.config.Payment.StripePublishableKey,
	}, nil
}

// ConfirmPayment checks the intent with Stripe and marks the fee paid once
// it has succeeded.
func (s *PaymentService) ConfirmPayment(actor Actor, proposalID uuid.UUID, req *ConfirmPaymentRequest) (*models.Proposal, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if s.config.Payment.StripeSecretKey == "" {
		return nil, ErrPaymentNotConfigured
	}

	proposal, err := s.loadProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !actor.canSee(proposal.ApplicantID) {
		return nil, ErrUnauthorized
	}
	if proposal.FeePaid {
		return nil, ErrAlreadyPaid
	}

	pi, err := s.getIntent(req.PaymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	if pi.Metadata["proposal_id"] != proposal.ID.String() {
		return nil, fmt.Errorf("%w: payment intent belongs to another proposal", ErrValidation)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation, stripe.PaymentIntentStatusProcessing:
		return nil, fmt.Errorf("%w: payment is %s", ErrInvalidState, pi.Status)
	default:
		return nil, fmt.Errorf("%w: payment failed with status %s", ErrInvalidState, pi.Status)
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		proposal.FeePaid = true
		proposal.FeePaymentRef = pi.ID
		if err := tx.Model(proposal).Select("fee_paid", "fee_payment_ref").Updates(proposal).Error; err != nil {
			return fmt.Errorf("failed to update proposal: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Application fee paid", proposal)
	})
	if err != nil {
		return nil, err
	}

	s.eventService.PublishAsync(EventApplicationFeePaid, map[string]interface{}{
		"proposal_id":    proposal.ID.String(),
		"payment_intent": pi.ID,
	})
	return proposal, nil
}

// ProcessRefund refunds a paid application fee.
func (s *PaymentService) ProcessRefund(actor Actor, proposalID uuid.UUID, req *RefundRequest) (*models.Proposal, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		return nil, ErrUnauthorized
	}

	proposal, err := s.loadProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if !proposal.FeePaid {
		return nil, fmt.Errorf("%w: application fee has not been paid", ErrInvalidState)
	}

	if proposal.FeePaymentRef != "" {
		if s.config.Payment.StripeSecretKey == "" {
			return nil, ErrPaymentNotConfigured
		}
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(proposal.FeePaymentRef),
			Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
		}
		if _, err := s.newRefund(params); err != nil {
			return nil, fmt.Errorf("failed to process refund: %w", err)
		}
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		proposal.FeePaid = false
		if err := tx.Model(proposal).Update("fee_paid", false).Error; err != nil {
			return fmt.Errorf("failed to update proposal: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Application fee refunded: "+req.Reason, proposal)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"proposal_id": proposal.ID,
		"payment_ref": proposal.FeePaymentRef,
	}).Info("Application fee refunded")
	return proposal, nil
}

func (s *PaymentService) loadProposal(proposalID uuid.UUID) (*models.Proposal, error) {
	var proposal models.Proposal
	if err := s.db.Preload("ProposalType").First(&proposal, "id = ?", proposalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if proposal.ProposalType == nil {
		return nil, ErrNotFound
	}
	return &proposal, nil
}

// Convert amount to cents for Stripe
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
