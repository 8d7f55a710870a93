package services

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/models"
)

func (s *ServiceTestSuite) TestProposalTypeVersioning() {
	admin := s.createUser(models.UserRoleAdmin, "Ann", "Admin")
	catalog := NewCatalogService(s.db, s.revisions)

	req := &ProposalTypeRequest{
		Name:           "E Class",
		Schema:         json.RawMessage(`[{"name":"activity","label":"Activity","type":"text"}]`),
		ApplicationFee: 150,
	}
	v1, err := catalog.CreateProposalType(s.actor(admin), req)
	s.Require().NoError(err)
	s.Equal(1, v1.Version)

	_, err = catalog.CreateProposalType(s.actor(admin), req)
	s.ErrorIs(err, ErrConflict)

	req.Schema = json.RawMessage(`{"not":"a list"}`)
	_, err = catalog.UpdateProposalType(s.actor(admin), v1.ID, req)
	s.ErrorIs(err, ErrValidation)

	req.Schema = json.RawMessage(`[{"name":"activity","label":"Activity","type":"text"},{"name":"vessel","label":"Vessel","type":"text"}]`)
	v2, err := catalog.UpdateProposalType(s.actor(admin), v1.ID, req)
	s.Require().NoError(err)
	s.Equal(2, v2.Version)

	_, err = catalog.UpdateProposalType(s.actor(admin), v1.ID, req)
	s.ErrorIs(err, ErrInvalidState, "replaced versions are read-only")

	current, err := catalog.ListProposalTypes(false)
	s.Require().NoError(err)
	s.Require().Len(current, 1)
	s.Equal(v2.ID, current[0].ID)

	all, err := catalog.ListProposalTypes(true)
	s.Require().NoError(err)
	s.Len(all, 2)

	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	_, err = s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: v1.ID})
	s.ErrorIs(err, ErrInvalidState)

	history, err := s.revisions.History("proposal_type", v1.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)

	compare, err := s.revisions.Compare("proposal_type", v1.ID, history[0].VersionID, history[1].VersionID)
	s.Require().NoError(err)
	fields := map[string]bool{}
	for _, f := range compare.Fields {
		fields[f.Field] = true
	}
	s.True(fields["replaced_by_id"])
}

func (s *ServiceTestSuite) TestHelpPageVersions() {
	admin := s.createUser(models.UserRoleAdmin, "Ann", "Admin")
	catalog := NewCatalogService(s.db, s.revisions)

	first, err := catalog.SaveHelpPage(s.actor(admin), &HelpPageRequest{ApplicationType: "T Class", Content: "<p>v1</p>"})
	s.Require().NoError(err)
	s.Equal(1, first.Version)
	s.Equal("external", first.HelpType)

	second, err := catalog.SaveHelpPage(s.actor(admin), &HelpPageRequest{ApplicationType: "T Class", Content: "<p>v2</p>"})
	s.Require().NoError(err)
	s.Equal(2, second.Version)

	assessor, err := catalog.SaveHelpPage(s.actor(admin), &HelpPageRequest{ApplicationType: "T Class", Content: "<p>a</p>", HelpType: "assessor"})
	s.Require().NoError(err)
	s.Equal(1, assessor.Version)

	latest, err := catalog.LatestHelpPage("T Class", "")
	s.Require().NoError(err)
	s.Equal(second.ID, latest.ID)

	_, err = catalog.LatestHelpPage("Unknown", "")
	s.ErrorIs(err, ErrNotFound)

	pages, err := catalog.ListHelpPages("T Class", "external")
	s.Require().NoError(err)
	s.Len(pages, 2)

	_, err = catalog.SaveHelpPage(s.actor(admin), &HelpPageRequest{ApplicationType: "T Class", Content: "x", HelpType: "internal"})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceTestSuite) TestHistoryErrors() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	proposal := s.submittedProposal(applicant)

	_, err := s.revisions.History("bogus", proposal.ID)
	s.ErrorIs(err, ErrUnknownHistory)

	_, err = s.revisions.History("proposal", uuid.New())
	s.ErrorIs(err, ErrNotFound)

	history, err := s.revisions.History("proposal", proposal.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal("Proposal submitted, processing status with_assessor", history[0].Comment)
	s.Equal("P000001", history[0].ObjectRepr[len("Proposal "):])

	_, err = s.revisions.Compare("proposal", proposal.ID, history[0].VersionID, history[0].VersionID)
	s.ErrorIs(err, ErrSameVersion)
	s.ErrorIs(err, ErrValidation)

	_, err = s.revisions.Compare("proposal", proposal.ID, history[0].VersionID, uuid.New())
	s.ErrorIs(err, ErrVersionMismatch)

	compare, err := s.revisions.Compare("proposal", proposal.ID, history[0].VersionID, history[1].VersionID)
	s.Require().NoError(err)
	s.Equal(history[1].VersionID, compare.Older.VersionID)
	s.Equal(history[0].VersionID, compare.Newer.VersionID)

	changed := map[string]bool{}
	for _, f := range compare.Fields {
		changed[f.Field] = true
	}
	s.True(changed["processing_status"])
	s.True(changed["lodgement_number"])
	s.False(changed["updated_at"])
}
