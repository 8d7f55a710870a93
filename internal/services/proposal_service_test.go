package services

import (
	"context"
	"mime/multipart"
	"net/url"

	"github.com/google/uuid"

	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

func (s *ServiceTestSuite) TestCreateProposalCopiesSchema() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	proposalType := s.createProposalType(0)

	proposal, err := s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: proposalType.ID})
	s.Require().NoError(err)

	s.Equal(models.ProposalStatusDraft, proposal.ProcessingStatus)
	s.Equal(models.CustomerStatusDraft, proposal.CustomerStatus)
	s.Len(proposal.Schema, 2)
	s.Empty(proposal.LodgementNumber)
	s.Equal(int64(1), s.countVersions(ModelProposal, proposal.ID))

	_, err = s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: uuid.New()})
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestSubmitProposalAssignsLodgementNumbers() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	first := s.submittedProposal(applicant)
	second := s.submittedProposal(applicant)

	s.Equal("P000001", first.LodgementNumber)
	s.Equal("P000002", second.LodgementNumber)
	s.Equal(models.ProposalStatusWithAssessor, first.ProcessingStatus)
	s.Equal(models.CustomerStatusUnderReview, first.CustomerStatus)
	s.NotNil(first.LodgementDate)

	history, err := s.revisions.History("proposal_filtered", first.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Contains(history[0].Comment, "status")

	_, err = s.proposals().Submit(s.actor(applicant), first.ID)
	s.ErrorIs(err, ErrInvalidState)
}

func (s *ServiceTestSuite) TestSubmitProposalRequiresApplicant() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	other := s.createUser(models.UserRoleCustomer, "Grace", "Hopper")
	proposalType := s.createProposalType(0)

	proposal, err := s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: proposalType.ID})
	s.Require().NoError(err)

	_, err = s.proposals().Submit(s.actor(other), proposal.ID)
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.proposals().Get(s.actor(other), proposal.ID)
	s.ErrorIs(err, ErrUnauthorized)
}

func (s *ServiceTestSuite) TestSaveFormStoresDataAndDocuments() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	proposalType := s.createProposalType(0)
	proposal, err := s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: proposalType.ID})
	s.Require().NoError(err)

	req := &SaveFormRequest{
		ProposalID: proposal.ID,
		Schema:     []byte(`[{"name":"applicant_name","label":"Name","type":"text"},{"name":"permit_document","label":"Document","type":"file"}]`),
		Values:     url.Values{"applicant_name": {"Ada Lovelace"}},
		Files:      map[string][]*multipart.FileHeader{"permit_document": {fileHeader(s.T(), "permit_document", "permit.pdf", []byte("%PDF-1.4"))}},
	}
	saved, err := s.proposals().SaveForm(context.Background(), s.actor(applicant), req)
	s.Require().NoError(err)
	s.Require().Len(saved.Data, 1)
	s.Equal("Ada Lovelace", saved.Data[0]["applicant_name"])
	s.Equal("permit.pdf", saved.Data[0]["permit_document"])

	reloaded, err := s.proposals().Get(s.actor(applicant), proposal.ID)
	s.Require().NoError(err)
	s.Equal("Ada Lovelace", reloaded.Data[0]["applicant_name"])
	s.Len(reloaded.Documents, 1)
	s.Equal(int64(2), s.countVersions(ModelProposal, proposal.ID))

	req.Schema = []byte(`[{"label":"No name"}]`)
	_, err = s.proposals().SaveForm(context.Background(), s.actor(applicant), req)
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceTestSuite) TestSaveFormRejectsLockedProposal() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	proposal := s.submittedProposal(applicant)

	_, err := s.proposals().SaveForm(context.Background(), s.actor(applicant), &SaveFormRequest{
		ProposalID: proposal.ID,
		Schema:     []byte(`[]`),
		Values:     url.Values{},
	})
	s.ErrorIs(err, ErrInvalidState)
}

func (s *ServiceTestSuite) TestChangeProposalStatus() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	proposal := s.submittedProposal(applicant)

	_, err := s.proposals().ChangeStatus(s.actor(applicant), proposal.ID, &ProposalStatusRequest{Status: models.ProposalStatusDeclined})
	s.ErrorIs(err, ErrUnauthorized)

	_, err = s.proposals().ChangeStatus(s.actor(officer), proposal.ID, &ProposalStatusRequest{Status: models.ProposalStatusApproved})
	s.ErrorIs(err, ErrInvalidState)

	updated, err := s.proposals().ChangeStatus(s.actor(officer), proposal.ID, &ProposalStatusRequest{
		Status: models.ProposalStatusAwaitingDocuments,
		Reason: "Need a map",
	})
	s.Require().NoError(err)
	s.Equal(models.CustomerStatusAmendment, updated.CustomerStatus)

	history, err := s.revisions.History("proposal", proposal.ID)
	s.Require().NoError(err)
	s.Contains(history[0].Comment, "Need a map")
	s.Equal("Olive Officer", history[0].UserName)
}

func (s *ServiceTestSuite) TestListProposalsByRole() {
	ada := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	grace := s.createUser(models.UserRoleCustomer, "Grace", "Hopper")
	officer := s.createUser(models.UserRoleAssessor, "Alan", "Assessor")
	s.submittedProposal(ada)
	s.submittedProposal(grace)

	params := ProposalSearchParams{PaginationParams: utils.PaginationParams{Page: 1, Limit: 10, Sort: "created_at", Order: "desc"}}

	own, total, err := s.proposals().List(s.actor(ada), params)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(ada.ID, own[0].ApplicantID)

	_, total, err = s.proposals().List(s.actor(officer), params)
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	params.Search = "p000002"
	found, total, err := s.proposals().List(s.actor(officer), params)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal("P000002", found[0].LodgementNumber)
}

func (s *ServiceTestSuite) TestDiscardProposal() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	proposalType := s.createProposalType(0)
	proposal, err := s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: proposalType.ID})
	s.Require().NoError(err)

	discarded, err := s.proposals().Discard(s.actor(applicant), proposal.ID)
	s.Require().NoError(err)
	s.Equal(models.ProposalStatusDiscarded, discarded.ProcessingStatus)
	s.Equal(models.CustomerStatusDiscarded, discarded.CustomerStatus)

	_, err = s.proposals().Discard(s.actor(applicant), proposal.ID)
	s.ErrorIs(err, ErrInvalidState)
}

func (s *ServiceTestSuite) TestFileFieldMatches() {
	s.True(fileFieldMatches("permit", "permit"))
	s.True(fileFieldMatches("permit", "permit-0"))
	s.True(fileFieldMatches("permit", "permit-1-2"))
	s.False(fileFieldMatches("permit", "permit-existing"))
	s.False(fileFieldMatches("permit", "permits"))
}
