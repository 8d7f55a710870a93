// internal/services/catalog_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/database"
	"github.com/permitdesk/licensing-backend/internal/formschema"
	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

// CatalogService manages proposal types and help pages.
type CatalogService struct {
	db              *gorm.DB
	revisionService *RevisionService
}

type ProposalTypeRequest struct {
	Name           string          `json:"name" validate:"required,max=64"`
	Description    string          `json:"description" validate:"max=256"`
	Schema         json.RawMessage `json:"schema" validate:"required"`
	ApplicationFee float64         `json:"application_fee" validate:"min=0"`
}

type HelpPageRequest struct {
	ApplicationType string `json:"application_type" validate:"required,max=64"`
	Content         string `json:"content" validate:"required"`
	Description     string `json:"description" validate:"max=256"`
	HelpType        string `json:"help_type" validate:"omitempty,oneof=external assessor"`
}

func NewCatalogService(db *gorm.DB, revisionService *RevisionService) *CatalogService {
	return &CatalogService{db: db, revisionService: revisionService}
}

// ListProposalTypes returns proposal types by name. Replaced versions are
// left out unless all is set.
func (s *CatalogService) ListProposalTypes(all bool) ([]models.ProposalType, error) {
	query := s.db.Model(&models.ProposalType{})
	if !all {
		query = query.Where("replaced_by_id IS NULL")
	}
	types := []models.ProposalType{}
	if err := query.Order("name").Order("version DESC").Find(&types).Error; err != nil {
		return nil, fmt.Errorf("failed to get proposal types: %w", err)
	}
	return types, nil
}

func (s *CatalogService) GetProposalType(id uuid.UUID) (*models.ProposalType, error) {
	var proposalType models.ProposalType
	if err := s.db.First(&proposalType, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &proposalType, nil
}

func (s *CatalogService) CreateProposalType(actor Actor, req *ProposalTypeRequest) (*models.ProposalType, error) {
	schema, err := s.checkProposalType(req)
	if err != nil {
		return nil, err
	}

	var existing int64
	if err := s.db.Model(&models.ProposalType{}).Where("name = ?", req.Name).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if existing > 0 {
		return nil, ErrConflict
	}

	proposalType := &models.ProposalType{
		Name:           req.Name,
		Description:    req.Description,
		Version:        1,
		Schema:         schema,
		ApplicationFee: req.ApplicationFee,
	}
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(proposalType).Error; err != nil {
			return fmt.Errorf("failed to create proposal type: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), "Proposal type created", proposalType)
	})
	if err != nil {
		return nil, err
	}
	return proposalType, nil
}

// UpdateProposalType publishes a new version of a proposal type. Existing
// proposals keep the schema they were created with.
func (s *CatalogService) UpdateProposalType(actor Actor, id uuid.UUID, req *ProposalTypeRequest) (*models.ProposalType, error) {
	schema, err := s.checkProposalType(req)
	if err != nil {
		return nil, err
	}

	current, err := s.GetProposalType(id)
	if err != nil {
		return nil, err
	}
	if current.ReplacedByID != nil {
		return nil, fmt.Errorf("%w: version %d has been replaced", ErrInvalidState, current.Version)
	}

	next := &models.ProposalType{
		Name:           req.Name,
		Description:    req.Description,
		Version:        current.Version + 1,
		Schema:         schema,
		ApplicationFee: req.ApplicationFee,
	}
	err = database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(next).Error; err != nil {
			return fmt.Errorf("failed to create proposal type: %w", err)
		}
		current.ReplacedByID = &next.ID
		if err := tx.Model(current).Update("replaced_by_id", next.ID).Error; err != nil {
			return fmt.Errorf("failed to update proposal type: %w", err)
		}
		comment := fmt.Sprintf("Proposal type version %d published", next.Version)
		return s.revisionService.Record(tx, actor.ref(), comment, current, next)
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *CatalogService) checkProposalType(req *ProposalTypeRequest) (models.JSONList, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	if _, err := formschema.Parse(req.Schema); err != nil {
		return nil, &ValidationError{Fields: []utils.ValidationError{{Field: "schema", Message: err.Error()}}}
	}
	var schema models.JSONList
	if err := json.Unmarshal(req.Schema, &schema); err != nil {
		return nil, &ValidationError{Fields: []utils.ValidationError{{Field: "schema", Message: err.Error()}}}
	}
	return schema, nil
}

// ListHelpPages returns help pages, newest version first.
func (s *CatalogService) ListHelpPages(applicationType, helpType string) ([]models.HelpPage, error) {
	query := s.db.Model(&models.HelpPage{})
	if applicationType != "" {
		query = query.Where("application_type = ?", applicationType)
	}
	if helpType != "" {
		query = query.Where("help_type = ?", helpType)
	}
	pages := []models.HelpPage{}
	if err := query.Order("application_type").Order("version DESC").Find(&pages).Error; err != nil {
		return nil, fmt.Errorf("failed to get help pages: %w", err)
	}
	return pages, nil
}

// LatestHelpPage returns the newest help page for an application type.
func (s *CatalogService) LatestHelpPage(applicationType, helpType string) (*models.HelpPage, error) {
	if helpType == "" {
		helpType = "external"
	}
	var page models.HelpPage
	err := s.db.Where("application_type = ? AND help_type = ?", applicationType, helpType).
		Order("version DESC").
		First(&page).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &page, nil
}

// SaveHelpPage stores a help page as the next version for its application
// and help type.
func (s *CatalogService) SaveHelpPage(actor Actor, req *HelpPageRequest) (*models.HelpPage, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	helpType := req.HelpType
	if helpType == "" {
		helpType = "external"
	}

	page := &models.HelpPage{
		ApplicationType: req.ApplicationType,
		Content:         req.Content,
		Description:     req.Description,
		HelpType:        helpType,
	}
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		var latest int
		if err := tx.Model(&models.HelpPage{}).
			Where("application_type = ? AND help_type = ?", req.ApplicationType, helpType).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error; err != nil {
			return fmt.Errorf("database error: %w", err)
		}
		page.Version = latest + 1
		if err := tx.Create(page).Error; err != nil {
			return fmt.Errorf("failed to create help page: %w", err)
		}
		return s.revisionService.Record(tx, actor.ref(), fmt.Sprintf("Help page version %d saved", page.Version), page)
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
