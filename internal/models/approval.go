// internal/models/approval.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type Approval struct {
	BaseModel
	LodgementNumber     string         `json:"lodgement_number" gorm:"size:20;index"`
	CurrentProposalID   uuid.UUID      `json:"current_proposal_id" gorm:"type:uuid;not null;index"`
	ApplicantID         uuid.UUID      `json:"applicant_id" gorm:"type:uuid;not null;index"`
	Status              ApprovalStatus `json:"status" gorm:"type:varchar(20);not null;default:'current';index"`
	IssueDate           time.Time      `json:"issue_date"`
	StartDate           time.Time      `json:"start_date"`
	ExpiryDate          time.Time      `json:"expiry_date" gorm:"index"`
	RenewalSent         bool           `json:"renewal_sent" gorm:"default:false"`
	SurrenderDetails    JSONB          `json:"surrender_details,omitempty"`
	SuspensionDetails   JSONB          `json:"suspension_details,omitempty"`
	CancellationDetails JSONB          `json:"cancellation_details,omitempty"`

	// Relationships
	CurrentProposal *Proposal  `json:"current_proposal,omitempty" gorm:"foreignKey:CurrentProposalID"`
	Applicant       *EmailUser `json:"applicant,omitempty" gorm:"foreignKey:ApplicantID"`
}

type Compliance struct {
	BaseModel
	LodgementNumber  string                 `json:"lodgement_number" gorm:"size:20;index"`
	ProposalID       uuid.UUID              `json:"proposal_id" gorm:"type:uuid;not null;index"`
	ApprovalID       uuid.UUID              `json:"approval_id" gorm:"type:uuid;not null;index"`
	DueDate          time.Time              `json:"due_date" gorm:"index"`
	ProcessingStatus ComplianceStatus       `json:"processing_status" gorm:"type:varchar(20);not null;default:'future';index"`
	CustomerStatus   ProposalCustomerStatus `json:"customer_status" gorm:"type:varchar(40);not null;default:'draft'"`
	Requirement      string                 `json:"requirement" gorm:"type:text;not null"`
	Text             string                 `json:"text" gorm:"type:text"`
	LodgementDate    *time.Time             `json:"lodgement_date"`
	ReminderSent     bool                   `json:"reminder_sent" gorm:"default:false"`

	// Relationships
	Approval *Approval `json:"approval,omitempty" gorm:"foreignKey:ApprovalID"`
}
