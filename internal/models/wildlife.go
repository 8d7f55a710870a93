// internal/models/wildlife.go
package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type WildlifeLicence struct {
	BaseModel
	LicenceNumber   string     `json:"licence_number" gorm:"size:64;index"`
	LicenceSequence int        `json:"licence_sequence" gorm:"default:1"`
	HolderID        uuid.UUID  `json:"holder_id" gorm:"type:uuid;not null;index"`
	ProfileID       *uuid.UUID `json:"profile_id" gorm:"type:uuid"`
	LicenceType     string     `json:"licence_type" gorm:"size:128;not null"`
	Purpose         string     `json:"purpose" gorm:"type:text"`
	IssueDate       *time.Time `json:"issue_date"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date" gorm:"index"`
	IsRenewable     bool       `json:"is_renewable" gorm:"default:true"`
	RenewalSent     bool       `json:"renewal_sent" gorm:"default:false"`

	// Relationships
	Holder  *EmailUser `json:"holder,omitempty" gorm:"foreignKey:HolderID"`
	Profile *Profile   `json:"profile,omitempty" gorm:"foreignKey:ProfileID"`
}

// Reference is the "<number>-<sequence>" form printed on documents.
func (l *WildlifeLicence) Reference() string {
	return l.LicenceNumber + "-" + strconv.Itoa(l.LicenceSequence)
}

type CommunicationsLogEntry struct {
	BaseModel
	CustomerID uuid.UUID         `json:"customer_id" gorm:"type:uuid;not null;index"`
	OfficerID  *uuid.UUID        `json:"officer_id" gorm:"type:uuid;index"`
	Type       CommunicationType `json:"type" gorm:"type:varchar(20);not null;default:'email'"`
	To         string            `json:"to" gorm:"column:to_address;size:200"`
	Fromm      string            `json:"fromm" gorm:"column:from_address;size:200"`
	Subject    string            `json:"subject" gorm:"size:200"`
	Text       string            `json:"text" gorm:"type:text"`

	Documents []Document `json:"documents" gorm:"many2many:comms_log_documents;"`
}
