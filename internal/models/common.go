// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// BeforeCreate assigns the primary key in Go so the same models run on
// postgres and sqlite.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB holds a JSON object column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

// JSONList holds a JSON array of objects, the shape form schemas and
// extracted proposal data are stored in.
type JSONList []map[string]interface{}

func (j JSONList) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *JSONList) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, err := jsonBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

func (JSONB) GormDataType() string {
	return "json"
}

func (JSONList) GormDataType() string {
	return "json"
}

// GormDBDataType picks jsonb on postgres and text elsewhere.
func (JSONB) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return jsonColumnType(db)
}

func (JSONList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return jsonColumnType(db)
}

func jsonColumnType(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "jsonb"
	}
	return "text"
}

func jsonBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported JSON column type %T", value)
	}
}

// Enums
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleOfficer  UserRole = "officer"
	UserRoleAssessor UserRole = "assessor"
	UserRoleAdmin    UserRole = "admin"
)

// IsStaff reports whether the role belongs to department staff.
func (r UserRole) IsStaff() bool {
	return r == UserRoleOfficer || r == UserRoleAssessor || r == UserRoleAdmin
}

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type ProposalProcessingStatus string

const (
	ProposalStatusDraft             ProposalProcessingStatus = "draft"
	ProposalStatusWithAssessor      ProposalProcessingStatus = "with_assessor"
	ProposalStatusWithReferral      ProposalProcessingStatus = "with_referral"
	ProposalStatusWithApprover      ProposalProcessingStatus = "with_approver"
	ProposalStatusAwaitingDocuments ProposalProcessingStatus = "awaiting_applicant_response"
	ProposalStatusApproved          ProposalProcessingStatus = "approved"
	ProposalStatusDeclined          ProposalProcessingStatus = "declined"
	ProposalStatusDiscarded         ProposalProcessingStatus = "discarded"
)

var proposalTransitions = map[ProposalProcessingStatus][]ProposalProcessingStatus{
	ProposalStatusDraft:             {ProposalStatusWithAssessor, ProposalStatusDiscarded},
	ProposalStatusWithAssessor:      {ProposalStatusWithReferral, ProposalStatusWithApprover, ProposalStatusAwaitingDocuments, ProposalStatusDeclined},
	ProposalStatusWithReferral:      {ProposalStatusWithAssessor},
	ProposalStatusAwaitingDocuments: {ProposalStatusWithAssessor},
	ProposalStatusWithApprover:      {ProposalStatusApproved, ProposalStatusDeclined, ProposalStatusWithAssessor},
}

// CanTransitionTo reports whether a proposal may move from s to next.
func (s ProposalProcessingStatus) CanTransitionTo(next ProposalProcessingStatus) bool {
	for _, allowed := range proposalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type ProposalCustomerStatus string

const (
	CustomerStatusDraft       ProposalCustomerStatus = "draft"
	CustomerStatusUnderReview ProposalCustomerStatus = "under_review"
	CustomerStatusAmendment   ProposalCustomerStatus = "amendment_required"
	CustomerStatusApproved    ProposalCustomerStatus = "approved"
	CustomerStatusDeclined    ProposalCustomerStatus = "declined"
	CustomerStatusDiscarded   ProposalCustomerStatus = "discarded"
)

type ReferralStatus string

const (
	ReferralStatusWithReferral ReferralStatus = "with_referral"
	ReferralStatusRecalled     ReferralStatus = "recalled"
	ReferralStatusCompleted    ReferralStatus = "completed"
)

type ApprovalStatus string

const (
	ApprovalStatusCurrent     ApprovalStatus = "current"
	ApprovalStatusExpired     ApprovalStatus = "expired"
	ApprovalStatusCancelled   ApprovalStatus = "cancelled"
	ApprovalStatusSurrendered ApprovalStatus = "surrendered"
	ApprovalStatusSuspended   ApprovalStatus = "suspended"
)

type ComplianceStatus string

const (
	ComplianceStatusFuture       ComplianceStatus = "future"
	ComplianceStatusDue          ComplianceStatus = "due"
	ComplianceStatusOverdue      ComplianceStatus = "overdue"
	ComplianceStatusWithAssessor ComplianceStatus = "with_assessor"
	ComplianceStatusApproved     ComplianceStatus = "approved"
	ComplianceStatusDiscarded    ComplianceStatus = "discarded"
)

type CommunicationType string

const (
	CommunicationTypeEmail  CommunicationType = "email"
	CommunicationTypePhone  CommunicationType = "phone"
	CommunicationTypeMail   CommunicationType = "mail"
	CommunicationTypePerson CommunicationType = "person"
)

// Valid lists every communication type accepted on log entries.
func (t CommunicationType) Valid() bool {
	switch t {
	case CommunicationTypeEmail, CommunicationTypePhone, CommunicationTypeMail, CommunicationTypePerson:
		return true
	}
	return false
}
