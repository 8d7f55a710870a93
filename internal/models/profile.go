// internal/models/profile.go
package models

import (
	"github.com/google/uuid"
)

type Address struct {
	BaseModel
	Line1    string `json:"line1" gorm:"size:255;not null"`
	Line2    string `json:"line2" gorm:"size:255"`
	Line3    string `json:"line3" gorm:"size:255"`
	Locality string `json:"locality" gorm:"size:255;not null"`
	State    string `json:"state" gorm:"size:255;default:'WA'"`
	Country  string `json:"country" gorm:"size:2;default:'AU'"`
	Postcode string `json:"postcode" gorm:"size:10;not null"`
}

type Profile struct {
	BaseModel
	UserID          uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Name            string    `json:"name" gorm:"size:100;not null"`
	Email           string    `json:"email" gorm:"size:255;not null"`
	Institution     string    `json:"institution" gorm:"size:200"`
	PostalAddressID uuid.UUID `json:"postal_address_id" gorm:"type:uuid;not null"`

	// Relationships
	User          *EmailUser `json:"-" gorm:"foreignKey:UserID"`
	PostalAddress Address    `json:"postal_address" gorm:"foreignKey:PostalAddressID"`
}
