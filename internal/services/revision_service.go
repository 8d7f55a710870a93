// internal/services/revision_service.go
package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/revisions"
)

var (
	ErrUnknownHistory  = errors.New("unknown history type")
	ErrVersionMismatch = fmt.Errorf("%w: versions do not belong to this record", ErrValidation)
	ErrSameVersion     = fmt.Errorf("%w: select two different versions", ErrValidation)
)

// Versioned model names.
const (
	ModelProposal     = "proposal"
	ModelReferral     = "referral"
	ModelApproval     = "approval"
	ModelCompliance   = "compliance"
	ModelProposalType = "proposal_type"
	ModelHelpPage     = "help_page"
)

type historyKind struct {
	modelName  string
	newModel   func() interface{}
	statusOnly bool
}

var historyKinds = map[string]historyKind{
	"proposal":          {ModelProposal, func() interface{} { return &models.Proposal{} }, false},
	"proposal_filtered": {ModelProposal, func() interface{} { return &models.Proposal{} }, true},
	"referral":          {ModelReferral, func() interface{} { return &models.Referral{} }, false},
	"approval":          {ModelApproval, func() interface{} { return &models.Approval{} }, false},
	"compliance":        {ModelCompliance, func() interface{} { return &models.Compliance{} }, false},
	"proposal_type":     {ModelProposalType, func() interface{} { return &models.ProposalType{} }, false},
	"help_page":         {ModelHelpPage, func() interface{} { return &models.HelpPage{} }, false},
}

// HistoryKinds lists the record types with compare views.
func HistoryKinds() []string {
	return []string{"proposal", "proposal_filtered", "referral", "approval", "compliance", "proposal_type", "help_page"}
}

type RevisionService struct {
	db *gorm.DB
}

type HistoryEntry struct {
	VersionID   uuid.UUID  `json:"version_id"`
	RevisionID  uuid.UUID  `json:"revision_id"`
	DateCreated time.Time  `json:"date_created"`
	Comment     string     `json:"comment"`
	UserID      *uuid.UUID `json:"user_id,omitempty"`
	UserName    string     `json:"user_name,omitempty"`
	ObjectRepr  string     `json:"object_repr"`
}

type HistoryCompare struct {
	Older  HistoryEntry          `json:"older"`
	Newer  HistoryEntry          `json:"newer"`
	Fields []revisions.FieldDiff `json:"fields"`
}

func NewRevisionService(db *gorm.DB) *RevisionService {
	return &RevisionService{db: db}
}

// Record writes a revision and one version per object using tx.
func (s *RevisionService) Record(tx *gorm.DB, userID *uuid.UUID, comment string, objects ...interface{}) error {
	rev := &models.Revision{
		UserID:      userID,
		Comment:     comment,
		DateCreated: time.Now().UTC(),
	}
	if err := tx.Create(rev).Error; err != nil {
		return fmt.Errorf("failed to create revision: %w", err)
	}

	for _, obj := range objects {
		name, id, repr, err := versionIdentity(obj)
		if err != nil {
			return err
		}
		data, err := serialize(obj)
		if err != nil {
			return err
		}
		version := &models.Version{
			RevisionID:     rev.ID,
			ModelName:      name,
			ObjectID:       id,
			ObjectRepr:     repr,
			SerializedData: data,
		}
		if err := tx.Create(version).Error; err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}
	}
	return nil
}

// History lists the versions of a record, newest first.
func (s *RevisionService) History(kind string, objectID uuid.UUID) ([]HistoryEntry, error) {
	hk, err := s.lookupObject(kind, objectID)
	if err != nil {
		return nil, err
	}

	versions, err := s.versions(hk, objectID)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(versions))
	for i := range versions {
		entries = append(entries, historyEntry(&versions[i]))
	}
	return entries, nil
}

// Compare diffs two versions of a record, older first.
func (s *RevisionService) Compare(kind string, objectID, versionID1, versionID2 uuid.UUID) (*HistoryCompare, error) {
	hk, err := s.lookupObject(kind, objectID)
	if err != nil {
		return nil, err
	}
	if versionID1 == versionID2 {
		return nil, ErrSameVersion
	}

	var pair []models.Version
	err = s.db.Preload("Revision.User").
		Where("id IN ? AND model_name = ? AND object_id = ?", []uuid.UUID{versionID1, versionID2}, hk.modelName, objectID).
		Find(&pair).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	if len(pair) != 2 {
		return nil, ErrVersionMismatch
	}

	older, newer := &pair[0], &pair[1]
	if versionTime(newer).Before(versionTime(older)) {
		older, newer = newer, older
	}

	return &HistoryCompare{
		Older:  historyEntry(older),
		Newer:  historyEntry(newer),
		Fields: revisions.Compare(older.SerializedData, newer.SerializedData),
	}, nil
}

func (s *RevisionService) lookupObject(kind string, objectID uuid.UUID) (historyKind, error) {
	hk, ok := historyKinds[kind]
	if !ok {
		return historyKind{}, ErrUnknownHistory
	}
	if err := s.db.Unscoped().Select("id").First(hk.newModel(), "id = ?", objectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return historyKind{}, ErrNotFound
		}
		return historyKind{}, fmt.Errorf("database error: %w", err)
	}
	return hk, nil
}

func (s *RevisionService) versions(hk historyKind, objectID uuid.UUID) ([]models.Version, error) {
	query := s.db.Model(&models.Version{}).
		Joins("JOIN revisions ON revisions.id = versions.revision_id").
		Where("versions.model_name = ? AND versions.object_id = ?", hk.modelName, objectID)
	if hk.statusOnly {
		query = query.Where("LOWER(revisions.comment) LIKE ?", "%status%")
	}

	var versions []models.Version
	err := query.Preload("Revision.User").
		Order("revisions.date_created DESC").
		Order("versions.created_at DESC").
		Find(&versions).Error
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return versions, nil
}

func versionTime(v *models.Version) time.Time {
	if v.Revision != nil {
		return v.Revision.DateCreated
	}
	return v.CreatedAt
}

func historyEntry(v *models.Version) HistoryEntry {
	entry := HistoryEntry{
		VersionID:   v.ID,
		RevisionID:  v.RevisionID,
		DateCreated: versionTime(v),
		ObjectRepr:  v.ObjectRepr,
	}
	if v.Revision != nil {
		entry.Comment = v.Revision.Comment
		entry.UserID = v.Revision.UserID
		if v.Revision.User != nil {
			entry.UserName = v.Revision.User.FullName()
		}
	}
	return entry
}

// versionIdentity names a tracked record. Relationship fields are cleared
// by serialize so only the record's own columns are stored.
func versionIdentity(obj interface{}) (string, uuid.UUID, string, error) {
	switch o := obj.(type) {
	case *models.Proposal:
		return ModelProposal, o.ID, "Proposal " + repr(o.LodgementNumber, o.ID), nil
	case *models.Referral:
		return ModelReferral, o.ID, "Referral " + o.ID.String(), nil
	case *models.Approval:
		return ModelApproval, o.ID, "Approval " + repr(o.LodgementNumber, o.ID), nil
	case *models.Compliance:
		return ModelCompliance, o.ID, "Compliance " + repr(o.LodgementNumber, o.ID), nil
	case *models.ProposalType:
		return ModelProposalType, o.ID, fmt.Sprintf("%s v%d", o.Name, o.Version), nil
	case *models.HelpPage:
		return ModelHelpPage, o.ID, fmt.Sprintf("%s (%s) v%d", o.ApplicationType, o.HelpType, o.Version), nil
	default:
		return "", uuid.Nil, "", fmt.Errorf("type %T is not versioned", obj)
	}
}

func repr(number string, id uuid.UUID) string {
	if number != "" {
		return number
	}
	return id.String()
}

func serialize(obj interface{}) (models.JSONB, error) {
	var shallow interface{}
	switch o := obj.(type) {
	case *models.Proposal:
		c := *o
		c.ProposalType, c.Applicant, c.Documents = nil, nil, nil
		shallow = c
	case *models.Referral:
		c := *o
		c.Proposal, c.Referee = nil, nil
		shallow = c
	case *models.Approval:
		c := *o
		c.CurrentProposal, c.Applicant = nil, nil
		shallow = c
	case *models.Compliance:
		c := *o
		c.Approval = nil
		shallow = c
	default:
		shallow = obj
	}

	raw, err := json.Marshal(shallow)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize version: %w", err)
	}
	var data models.JSONB
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to serialize version: %w", err)
	}
	return data, nil
}
