package services

import (
	"time"

	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

func (s *ServiceTestSuite) referrals() *ReferralService {
	return NewReferralService(s.db, s.revisions, s.notifications, s.events)
}

func (s *ServiceTestSuite) approvals() *ApprovalService {
	return NewApprovalService(s.db, s.revisions, s.notifications, s.events)
}

func (s *ServiceTestSuite) compliances() *ComplianceService {
	return NewComplianceService(s.db, s.revisions, s.notifications, s.events)
}

// issuedApproval runs a proposal through to an approval.
func (s *ServiceTestSuite) issuedApproval(applicant, officer *models.EmailUser) *models.Approval {
	proposal := s.submittedProposal(applicant)
	s.moveProposal(proposal, models.ProposalStatusWithApprover)

	start := time.Now().UTC().Add(-time.Hour)
	approval, err := s.approvals().Issue(s.actor(officer), proposal.ID, &IssueApprovalRequest{
		StartDate:  start,
		ExpiryDate: start.AddDate(1, 0, 0),
	})
	s.Require().NoError(err)
	return approval
}

func (s *ServiceTestSuite) TestReferralRoundTrip() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	referee := s.createUser(models.UserRoleAssessor, "Rita", "Referee")
	proposal := s.submittedProposal(applicant)

	_, err := s.referrals().Send(s.actor(officer), proposal.ID, &SendReferralRequest{RefereeID: applicant.ID})
	s.ErrorIs(err, ErrInvalidState, "customers cannot be referees")

	referral, err := s.referrals().Send(s.actor(officer), proposal.ID, &SendReferralRequest{RefereeID: referee.ID, Text: "Please check the map"})
	s.Require().NoError(err)
	s.Equal(models.ReferralStatusWithReferral, referral.ProcessingStatus)

	var stored models.Proposal
	s.Require().NoError(s.db.First(&stored, "id = ?", proposal.ID).Error)
	s.Equal(models.ProposalStatusWithReferral, stored.ProcessingStatus)

	_, err = s.referrals().Complete(s.actor(officer), referral.ID, &CompleteReferralRequest{ReferralText: "Looks fine"})
	s.ErrorIs(err, ErrUnauthorized)

	completed, err := s.referrals().Complete(s.actor(referee), referral.ID, &CompleteReferralRequest{ReferralText: "Looks fine"})
	s.Require().NoError(err)
	s.Equal(models.ReferralStatusCompleted, completed.ProcessingStatus)
	s.NotNil(completed.CompletedAt)

	s.Require().NoError(s.db.First(&stored, "id = ?", proposal.ID).Error)
	s.Equal(models.ProposalStatusWithAssessor, stored.ProcessingStatus)
	s.Equal(int64(2), s.countVersions(ModelReferral, referral.ID))

	list, err := s.referrals().ListForProposal(s.actor(officer), proposal.ID)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *ServiceTestSuite) TestProposalStaysWithReferralUntilAllComplete() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	first := s.createUser(models.UserRoleAssessor, "Rita", "Referee")
	second := s.createUser(models.UserRoleAssessor, "Rob", "Referee")
	proposal := s.submittedProposal(applicant)

	r1, err := s.referrals().Send(s.actor(officer), proposal.ID, &SendReferralRequest{RefereeID: first.ID})
	s.Require().NoError(err)
	r2, err := s.referrals().Send(s.actor(officer), proposal.ID, &SendReferralRequest{RefereeID: second.ID})
	s.Require().NoError(err)

	_, err = s.referrals().Complete(s.actor(first), r1.ID, &CompleteReferralRequest{ReferralText: "ok"})
	s.Require().NoError(err)

	var stored models.Proposal
	s.Require().NoError(s.db.First(&stored, "id = ?", proposal.ID).Error)
	s.Equal(models.ProposalStatusWithReferral, stored.ProcessingStatus)

	_, err = s.referrals().Recall(s.actor(officer), r2.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.db.First(&stored, "id = ?", proposal.ID).Error)
	s.Equal(models.ProposalStatusWithAssessor, stored.ProcessingStatus)
}

func (s *ServiceTestSuite) TestIssueApproval() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")

	proposal := s.submittedProposal(applicant)
	start := time.Now().UTC()
	_, err := s.approvals().Issue(s.actor(officer), proposal.ID, &IssueApprovalRequest{StartDate: start, ExpiryDate: start.AddDate(1, 0, 0)})
	s.ErrorIs(err, ErrInvalidState, "proposal is still with the assessor")

	_, err = s.approvals().Issue(s.actor(officer), proposal.ID, &IssueApprovalRequest{StartDate: start, ExpiryDate: start.AddDate(-1, 0, 0)})
	s.ErrorIs(err, ErrValidation)

	approval := s.issuedApproval(applicant, officer)
	s.Equal("A000001", approval.LodgementNumber)
	s.Equal(models.ApprovalStatusCurrent, approval.Status)

	var stored models.Proposal
	s.Require().NoError(s.db.First(&stored, "id = ?", approval.CurrentProposalID).Error)
	s.Equal(models.ProposalStatusApproved, stored.ProcessingStatus)
	s.Equal(models.CustomerStatusApproved, stored.CustomerStatus)

	verified, err := s.approvals().Verify(" a000001 ")
	s.Require().NoError(err)
	s.True(verified.IsValid)
	s.Equal("Ada Lovelace", verified.Holder)

	_, err = s.approvals().Verify("A999999")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestApprovalStatusChanges() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	other := s.createUser(models.UserRoleCustomer, "Grace", "Hopper")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	approval := s.issuedApproval(applicant, officer)

	_, err := s.approvals().ChangeStatus(s.actor(applicant), approval.ID, &ApprovalStatusRequest{Status: models.ApprovalStatusCancelled, Reason: "no"})
	s.ErrorIs(err, ErrUnauthorized, "holders may only surrender")

	_, err = s.approvals().ChangeStatus(s.actor(other), approval.ID, &ApprovalStatusRequest{Status: models.ApprovalStatusSurrendered, Reason: "no"})
	s.ErrorIs(err, ErrUnauthorized)

	suspended, err := s.approvals().ChangeStatus(s.actor(officer), approval.ID, &ApprovalStatusRequest{Status: models.ApprovalStatusSuspended, Reason: "Breach"})
	s.Require().NoError(err)
	s.Equal("Breach", suspended.SuspensionDetails["reason"])

	verified, err := s.approvals().Verify(approval.LodgementNumber)
	s.Require().NoError(err)
	s.False(verified.IsValid)

	_, err = s.approvals().ChangeStatus(s.actor(officer), approval.ID, &ApprovalStatusRequest{Status: models.ApprovalStatusCurrent, Reason: "Resolved"})
	s.Require().NoError(err)

	surrendered, err := s.approvals().ChangeStatus(s.actor(applicant), approval.ID, &ApprovalStatusRequest{Status: models.ApprovalStatusSurrendered, Reason: "Retiring"})
	s.Require().NoError(err)
	s.Equal(models.ApprovalStatusSurrendered, surrendered.Status)

	_, err = s.approvals().ChangeStatus(s.actor(officer), approval.ID, &ApprovalStatusRequest{Status: models.ApprovalStatusCurrent, Reason: "undo"})
	s.ErrorIs(err, ErrInvalidState)

	history, err := s.revisions.History("approval", approval.ID)
	s.Require().NoError(err)
	s.Len(history, 4)
}

func (s *ServiceTestSuite) TestExpireDueApprovals() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	approval := s.issuedApproval(applicant, officer)

	n, err := s.approvals().ExpireDue(time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(0, n)

	n, err = s.approvals().ExpireDue(approval.ExpiryDate.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	var stored models.Approval
	s.Require().NoError(s.db.First(&stored, "id = ?", approval.ID).Error)
	s.Equal(models.ApprovalStatusExpired, stored.Status)
}

func (s *ServiceTestSuite) TestComplianceLifecycle() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	approval := s.issuedApproval(applicant, officer)

	_, err := s.compliances().Create(s.actor(applicant), &CreateComplianceRequest{ApprovalID: approval.ID, Requirement: "Annual return", DueDate: time.Now()})
	s.ErrorIs(err, ErrUnauthorized)

	compliance, err := s.compliances().Create(s.actor(officer), &CreateComplianceRequest{
		ApprovalID:  approval.ID,
		Requirement: "Annual return",
		DueDate:     time.Now().UTC().AddDate(0, 0, 30),
	})
	s.Require().NoError(err)
	s.Equal("C000001", compliance.LodgementNumber)
	s.Equal(models.ComplianceStatusFuture, compliance.ProcessingStatus)

	got, err := s.compliances().Get(s.actor(applicant), compliance.ID)
	s.Require().NoError(err)
	s.Equal(approval.ID, got.Approval.ID)

	submitted, err := s.compliances().Submit(s.actor(applicant), compliance.ID, &SubmitComplianceRequest{Text: "Return attached"})
	s.Require().NoError(err)
	s.Equal(models.ComplianceStatusWithAssessor, submitted.ProcessingStatus)
	s.NotNil(submitted.LodgementDate)

	returned, err := s.compliances().Assess(s.actor(officer), compliance.ID, &AssessComplianceRequest{Reason: "Missing page"})
	s.Require().NoError(err)
	s.Equal(models.ComplianceStatusDue, returned.ProcessingStatus)
	s.Equal(models.CustomerStatusAmendment, returned.CustomerStatus)

	_, err = s.compliances().Submit(s.actor(applicant), compliance.ID, &SubmitComplianceRequest{Text: "Complete return"})
	s.Require().NoError(err)
	accepted, err := s.compliances().Assess(s.actor(officer), compliance.ID, &AssessComplianceRequest{Accept: true})
	s.Require().NoError(err)
	s.Equal(models.ComplianceStatusApproved, accepted.ProcessingStatus)

	list, total, err := s.compliances().List(s.actor(applicant), ComplianceSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Sort: "due_date", Order: "asc"},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(list, 1)
}

func (s *ServiceTestSuite) TestComplianceDueAndReminders() {
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	approval := s.issuedApproval(applicant, officer)
	now := time.Now().UTC()

	soon, err := s.compliances().Create(s.actor(officer), &CreateComplianceRequest{ApprovalID: approval.ID, Requirement: "Return", DueDate: now.AddDate(0, 0, 5)})
	s.Require().NoError(err)
	late, err := s.compliances().Create(s.actor(officer), &CreateComplianceRequest{ApprovalID: approval.ID, Requirement: "Survey", DueDate: now.AddDate(0, 0, -1)})
	s.Require().NoError(err)
	_, err = s.compliances().Create(s.actor(officer), &CreateComplianceRequest{ApprovalID: approval.ID, Requirement: "Later", DueDate: now.AddDate(0, 3, 0)})
	s.Require().NoError(err)

	changed, err := s.compliances().MarkDueAndOverdue(now, 14*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(2, changed)

	var storedSoon, storedLate models.Compliance
	s.Require().NoError(s.db.First(&storedSoon, "id = ?", soon.ID).Error)
	s.Equal(models.ComplianceStatusDue, storedSoon.ProcessingStatus)
	s.Require().NoError(s.db.First(&storedLate, "id = ?", late.ID).Error)
	s.Equal(models.ComplianceStatusOverdue, storedLate.ProcessingStatus)

	changed, err = s.compliances().MarkDueAndOverdue(now, 14*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(0, changed)

	sent, err := s.compliances().SendReminders()
	s.Require().NoError(err)
	s.Equal(2, sent)

	sent, err = s.compliances().SendReminders()
	s.Require().NoError(err)
	s.Equal(0, sent)

	reminders := 0
	for _, e := range s.sentTo(applicant.Email) {
		if e.Subject == "Compliance reminder - "+soon.LodgementNumber || e.Subject == "Compliance reminder - "+late.LodgementNumber {
			reminders++
		}
	}
	s.Equal(2, reminders)
}
