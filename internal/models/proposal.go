// internal/models/proposal.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ProposalType struct {
	BaseModel
	Name           string     `json:"name" gorm:"size:64;not null;index"`
	Description    string     `json:"description" gorm:"size:256"`
	Version        int        `json:"version" gorm:"not null;default:1"`
	Schema         JSONList   `json:"schema" gorm:"not null"`
	ApplicationFee float64    `json:"application_fee" gorm:"type:decimal(10,2);default:0"`
	ReplacedByID   *uuid.UUID `json:"replaced_by_id" gorm:"type:uuid"`
}

type HelpPage struct {
	BaseModel
	ApplicationType string `json:"application_type" gorm:"size:64;not null;index"`
	Content         string `json:"content" gorm:"type:text"`
	Description     string `json:"description" gorm:"size:256"`
	HelpType        string `json:"help_type" gorm:"size:32;not null;default:'external'"`
	Version         int    `json:"version" gorm:"not null;default:1"`
}

type Proposal struct {
	BaseModel
	LodgementNumber   string                   `json:"lodgement_number" gorm:"size:20;index"`
	ProposalTypeID    uuid.UUID                `json:"proposal_type_id" gorm:"type:uuid;not null;index"`
	ApplicantID       uuid.UUID                `json:"applicant_id" gorm:"type:uuid;not null;index"`
	Schema            JSONList                 `json:"schema"`
	Data              JSONList                 `json:"data"`
	ProcessingStatus  ProposalProcessingStatus `json:"processing_status" gorm:"type:varchar(40);not null;default:'draft';index"`
	CustomerStatus    ProposalCustomerStatus   `json:"customer_status" gorm:"type:varchar(40);not null;default:'draft'"`
	LodgementDate     *time.Time               `json:"lodgement_date"`
	FeePaid           bool                     `json:"fee_paid" gorm:"default:false"`
	FeePaymentRef     string                   `json:"fee_payment_ref,omitempty" gorm:"size:255"`
	AssignedOfficerID *uuid.UUID               `json:"assigned_officer_id" gorm:"type:uuid;index"`

	// Relationships
	ProposalType *ProposalType `json:"proposal_type,omitempty" gorm:"foreignKey:ProposalTypeID"`
	Applicant    *EmailUser    `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
	Documents    []Document    `json:"documents,omitempty" gorm:"many2many:proposal_documents;"`
}

// IsEditable reports whether the applicant may still change the form data.
func (p *Proposal) IsEditable() bool {
	return p.ProcessingStatus == ProposalStatusDraft || p.ProcessingStatus == ProposalStatusAwaitingDocuments
}

type Referral struct {
	BaseModel
	ProposalID       uuid.UUID      `json:"proposal_id" gorm:"type:uuid;not null;index"`
	RefereeID        uuid.UUID      `json:"referee_id" gorm:"type:uuid;not null;index"`
	SentByID         uuid.UUID      `json:"sent_by_id" gorm:"type:uuid;not null"`
	ProcessingStatus ReferralStatus `json:"processing_status" gorm:"type:varchar(30);not null;default:'with_referral'"`
	Text             string         `json:"text" gorm:"type:text"`
	ReferralText     string         `json:"referral_text" gorm:"type:text"`
	CompletedAt      *time.Time     `json:"completed_at"`

	// Relationships
	Proposal *Proposal  `json:"proposal,omitempty" gorm:"foreignKey:ProposalID"`
	Referee  *EmailUser `json:"referee,omitempty" gorm:"foreignKey:RefereeID"`
}
