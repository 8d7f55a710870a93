// internal/services/profile_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/models"
)

type ProfileService struct {
	db *gorm.DB
}

type AddressRequest struct {
	Line1    string `json:"line1" validate:"required,max=255"`
	Line2    string `json:"line2" validate:"max=255"`
	Line3    string `json:"line3" validate:"max=255"`
	Locality string `json:"locality" validate:"required,max=255"`
	State    string `json:"state" validate:"max=255"`
	Country  string `json:"country" validate:"omitempty,len=2"`
	Postcode string `json:"postcode" validate:"required,postcode"`
}

type ProfileRequest struct {
	User          uuid.UUID      `json:"user"`
	Name          string         `json:"name" validate:"required,max=100"`
	Email         string         `json:"email" validate:"required,email"`
	Institution   string         `json:"institution" validate:"max=200"`
	PostalAddress AddressRequest `json:"postal_address"`
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) List(userID uuid.UUID) ([]models.Profile, error) {
	profiles := []models.Profile{}
	if err := s.db.Preload("PostalAddress").Where("user_id = ?", userID).Order("name").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return profiles, nil
}

// Get returns a profile owned by userID.
func (s *ProfileService) Get(userID, profileID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.Preload("PostalAddress").First(&profile, "id = ?", profileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if profile.UserID != userID {
		return nil, ErrUnauthorized
	}
	return &profile, nil
}

func (s *ProfileService) Create(userID uuid.UUID, req *ProfileRequest) (*models.Profile, error) {
	if req.User != userID {
		return nil, ErrUnauthorized
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	profile := &models.Profile{
		UserID:        userID,
		Name:          req.Name,
		Email:         req.Email,
		Institution:   req.Institution,
		PostalAddress: addressFromRequest(req.PostalAddress),
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(&profile.PostalAddress).Error; err != nil {
			return fmt.Errorf("failed to create address: %w", err)
		}
		profile.PostalAddressID = profile.PostalAddress.ID
		return tx.Omit("PostalAddress").Create(profile).Error
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) Update(userID, profileID uuid.UUID, req *ProfileRequest) (*models.Profile, error) {
	profile, err := s.Get(userID, profileID)
	if err != nil {
		return nil, err
	}
	if req.User != userID {
		return nil, ErrUnauthorized
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	address := addressFromRequest(req.PostalAddress)
	address.BaseModel = profile.PostalAddress.BaseModel

	profile.Name = req.Name
	profile.Email = req.Email
	profile.Institution = req.Institution
	profile.PostalAddress = address

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Save(&profile.PostalAddress).Error; err != nil {
			return fmt.Errorf("failed to update address: %w", err)
		}
		return tx.Omit("PostalAddress").Save(profile).Error
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *ProfileService) Delete(userID, profileID uuid.UUID) (*models.Profile, error) {
	profile, err := s.Get(userID, profileID)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Delete(profile).Error; err != nil {
			return fmt.Errorf("failed to delete profile: %w", err)
		}
		return tx.Delete(&profile.PostalAddress).Error
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func addressFromRequest(req AddressRequest) models.Address {
	address := models.Address{
		Line1:    req.Line1,
		Line2:    req.Line2,
		Line3:    req.Line3,
		Locality: req.Locality,
		State:    req.State,
		Country:  req.Country,
		Postcode: req.Postcode,
	}
	if address.State == "" {
		address.State = "WA"
	}
	if address.Country == "" {
		address.Country = "AU"
	}
	return address
}
