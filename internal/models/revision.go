// internal/models/revision.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Revision groups the versions written by one save.
type Revision struct {
	BaseModel
	UserID      *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Comment     string     `json:"comment" gorm:"type:text"`
	DateCreated time.Time  `json:"date_created" gorm:"index"`

	User     *EmailUser `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Versions []Version  `json:"versions,omitempty" gorm:"foreignKey:RevisionID"`
}

// Version is the serialized state of one record at a revision.
type Version struct {
	BaseModel
	RevisionID     uuid.UUID `json:"revision_id" gorm:"type:uuid;not null;index"`
	ModelName      string    `json:"model_name" gorm:"size:64;not null;index:idx_versions_object"`
	ObjectID       uuid.UUID `json:"object_id" gorm:"type:uuid;not null;index:idx_versions_object"`
	ObjectRepr     string    `json:"object_repr" gorm:"size:255"`
	SerializedData JSONB     `json:"serialized_data"`

	Revision *Revision `json:"revision,omitempty" gorm:"foreignKey:RevisionID"`
}

// LodgementSequence holds the last number issued for a lodgement prefix.
type LodgementSequence struct {
	Prefix string `gorm:"primaryKey;size:4"`
	Value  int64  `gorm:"not null;default:0"`
}
