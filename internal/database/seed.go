// internal/database/seed.go
package database

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/models"
)

//go:embed seeds/initial.yaml
var initialSeed []byte

type seedFile struct {
	Admin struct {
		Email     string `yaml:"email"`
		FirstName string `yaml:"first_name"`
		LastName  string `yaml:"last_name"`
	} `yaml:"admin"`
	ProposalTypes []struct {
		Name           string                   `yaml:"name"`
		Description    string                   `yaml:"description"`
		ApplicationFee float64                  `yaml:"application_fee"`
		Schema         []map[string]interface{} `yaml:"schema"`
	} `yaml:"proposal_types"`
	HelpPages []struct {
		ApplicationType string `yaml:"application_type"`
		HelpType        string `yaml:"help_type"`
		Description     string `yaml:"description"`
		Content         string `yaml:"content"`
	} `yaml:"help_pages"`
}

func loadSeed(raw []byte) (*seedFile, error) {
	var s seedFile
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &s, nil
}

// SeedInitialData creates the admin account, proposal types and help pages
// that do not exist yet. It is safe to run repeatedly.
func SeedInitialData(db *gorm.DB, adminPassword string) error {
	logrus.Info("Seeding initial data...")

	seed, err := loadSeed(initialSeed)
	if err != nil {
		return err
	}

	var adminCount int64
	db.Model(&models.EmailUser{}).Where("role = ?", models.UserRoleAdmin).Count(&adminCount)

	if adminCount == 0 {
		if adminPassword == "" {
			return errors.New("admin password is required to seed the admin account")
		}
		admin := &models.EmailUser{
			Email:     seed.Admin.Email,
			FirstName: seed.Admin.FirstName,
			LastName:  seed.Admin.LastName,
			Role:      models.UserRoleAdmin,
			Status:    models.UserStatusActive,
		}
		if err := admin.SetPassword(adminPassword); err != nil {
			return fmt.Errorf("failed to set admin password: %w", err)
		}
		if err := db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		logrus.WithField("email", admin.Email).Info("Default admin user created")
	}

	for _, pt := range seed.ProposalTypes {
		var count int64
		db.Model(&models.ProposalType{}).Where("name = ?", pt.Name).Count(&count)
		if count > 0 {
			continue
		}
		record := &models.ProposalType{
			Name:           pt.Name,
			Description:    pt.Description,
			Version:        1,
			Schema:         models.JSONList(pt.Schema),
			ApplicationFee: pt.ApplicationFee,
		}
		if err := db.Create(record).Error; err != nil {
			logrus.WithError(err).WithField("proposal_type", pt.Name).Warn("Failed to seed proposal type")
		}
	}

	for _, hp := range seed.HelpPages {
		var count int64
		db.Model(&models.HelpPage{}).
			Where("application_type = ? AND help_type = ?", hp.ApplicationType, hp.HelpType).
			Count(&count)
		if count > 0 {
			continue
		}
		page := &models.HelpPage{
			ApplicationType: hp.ApplicationType,
			HelpType:        hp.HelpType,
			Description:     hp.Description,
			Content:         hp.Content,
			Version:         1,
		}
		if err := db.Create(page).Error; err != nil {
			logrus.WithError(err).WithField("application_type", hp.ApplicationType).Warn("Failed to seed help page")
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}
