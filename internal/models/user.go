// internal/models/user.go
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type EmailUser struct {
	BaseModel
	Email            string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FirstName        string     `json:"first_name" gorm:"size:128;not null"`
	LastName         string     `json:"last_name" gorm:"size:128;not null"`
	DOB              *time.Time `json:"dob"`
	PasswordHash     string     `json:"-" gorm:"size:255;not null"`
	Role             UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'customer';index"`
	Status           UserStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	IdentificationID *uuid.UUID `json:"identification_id" gorm:"type:uuid"`
	LastLoginAt      *time.Time `json:"last_login_at"`

	// Relationships
	Identification *Document  `json:"identification,omitempty" gorm:"foreignKey:IdentificationID"`
	Documents      []Document `json:"documents,omitempty" gorm:"many2many:user_documents;"`
	Profiles       []Profile  `json:"profiles,omitempty" gorm:"foreignKey:UserID"`
}

func (u *EmailUser) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *EmailUser) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

func (u *EmailUser) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// FullNameDOB is the label officers see in customer search results.
func (u *EmailUser) FullNameDOB() string {
	if u.DOB == nil {
		return u.FullName()
	}
	return fmt.Sprintf("%s (%s)", u.FullName(), u.DOB.Format("02/01/2006"))
}
