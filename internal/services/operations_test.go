package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"

	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

func (s *ServiceTestSuite) createLicence(holder *models.EmailUser, number string, seq int, endsIn time.Duration) *models.WildlifeLicence {
	end := time.Now().UTC().Add(endsIn)
	licence := &models.WildlifeLicence{
		LicenceNumber:   number,
		LicenceSequence: seq,
		HolderID:        holder.ID,
		LicenceType:     "Regulation 17",
		EndDate:         &end,
		IsRenewable:     true,
	}
	s.Require().NoError(s.db.Create(licence).Error)
	return licence
}

func (s *ServiceTestSuite) TestRenewalPDFs() {
	licences := NewLicenceService(s.db, s.notifications, s.events)
	ada := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	grace := s.createUser(models.UserRoleCustomer, "Grace", "Hopper")
	first := s.createLicence(ada, "WL0001", 2, 20*24*time.Hour)
	s.createLicence(grace, "WL0002", 1, 20*24*time.Hour)

	single, err := licences.RenewalPDF(first.ID, "http://localhost:8080/")
	s.Require().NoError(err)
	s.Equal("WL0001-2-renewal.pdf", single.Filename)
	s.Equal("%PDF-", string(single.Content[:5]))

	_, err = licences.RenewalPDF(uuid.New(), "http://localhost:8080/")
	s.ErrorIs(err, ErrNotFound)

	bulk, err := licences.BulkRenewalPDF(&BulkRenewalRequest{Query: "hopper"}, "http://localhost:8080/")
	s.Require().NoError(err)
	s.Equal("bulk-renewals.pdf", bulk.Filename)

	empty, err := licences.BulkRenewalPDF(&BulkRenewalRequest{}, "http://localhost:8080/")
	s.Require().NoError(err)
	s.Less(len(empty.Content), len(bulk.Content))

	found, total, err := licences.List(LicenceSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Sort: "licence_number", Order: "asc", Search: "wl0001"},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(first.ID, found[0].ID)

	found, total, err = licences.List(LicenceSearchParams{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Sort: "licence_number", Order: "asc", Search: "grace hop"},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(grace.ID, found[0].HolderID)
}

func (s *ServiceTestSuite) TestSendRenewalNotices() {
	licences := NewLicenceService(s.db, s.notifications, s.events)
	ada := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	soon := s.createLicence(ada, "WL0001", 1, 10*24*time.Hour)
	s.createLicence(ada, "WL0002", 1, 90*24*time.Hour)
	s.createLicence(ada, "WL0003", 1, -24*time.Hour)

	sent, err := licences.SendRenewalNotices(time.Now().UTC(), 30*24*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, sent)

	var stored models.WildlifeLicence
	s.Require().NoError(s.db.First(&stored, "id = ?", soon.ID).Error)
	s.True(stored.RenewalSent)

	emails := s.sentTo(ada.Email)
	s.Require().Len(emails, 1)
	s.Equal("Licence renewal notice - WL0001-1", emails[0].Subject)

	sent, err = licences.SendRenewalNotices(time.Now().UTC(), 30*24*time.Hour)
	s.Require().NoError(err)
	s.Zero(sent)
}

func (s *ServiceTestSuite) TestCommunicationsLog() {
	comms := NewCommsLogService(s.db, s.storage)
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	customer := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	ctx := context.Background()

	_, err := comms.Add(ctx, s.actor(officer), uuid.New(), &CommsLogEntryRequest{Type: models.CommunicationTypeEmail}, nil)
	s.ErrorIs(err, ErrNotFound)

	_, err = comms.Add(ctx, s.actor(officer), customer.ID, &CommsLogEntryRequest{Type: "fax"}, nil)
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("type", verr.Fields[0].Field)

	_, err = comms.Add(ctx, s.actor(customer), customer.ID, &CommsLogEntryRequest{Type: models.CommunicationTypeEmail}, nil)
	s.ErrorIs(err, ErrUnauthorized)

	first, err := comms.Add(ctx, s.actor(officer), customer.ID, &CommsLogEntryRequest{
		Type:    models.CommunicationTypePhone,
		Subject: "Called about renewal",
	}, nil)
	s.Require().NoError(err)
	s.Equal(officer.ID, *first.OfficerID)

	_, err = comms.Add(ctx, s.actor(officer), customer.ID, &CommsLogEntryRequest{
		Type:    models.CommunicationTypeEmail,
		To:      customer.Email,
		Subject: "Follow up",
	}, fileHeader(s.T(), "attachment", "letter.pdf", []byte("%PDF-1.4")))
	s.Require().NoError(err)

	forCustomer, err := comms.List(customer.ID)
	s.Require().NoError(err)
	s.Require().Len(forCustomer, 2)
	s.Equal("Called about renewal", forCustomer[0].Subject)
	s.Len(forCustomer[1].Documents, 1)

	forOfficer, err := comms.List(officer.ID)
	s.Require().NoError(err)
	s.Len(forOfficer, 2)
}

func (s *ServiceTestSuite) TestApplicationFeePayment() {
	s.cfg.Payment.StripeSecretKey = "sk_test_123"
	payments := NewPaymentService(s.db, s.cfg, s.revisions, s.events)
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	proposalType := s.createProposalType(125.5)
	proposal, err := s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: proposalType.ID})
	s.Require().NoError(err)

	var created *stripe.PaymentIntentParams
	payments.newIntent = func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
		created = params
		return &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "secret", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil
	}
	status := stripe.PaymentIntentStatusProcessing
	payments.getIntent = func(id string) (*stripe.PaymentIntent, error) {
		return &stripe.PaymentIntent{ID: id, Status: status, Metadata: map[string]string{"proposal_id": proposal.ID.String()}}, nil
	}
	refunded := ""
	payments.newRefund = func(params *stripe.RefundParams) (*stripe.Refund, error) {
		refunded = *params.PaymentIntent
		return &stripe.Refund{ID: "re_1"}, nil
	}

	intent, err := payments.CreatePaymentIntent(s.actor(applicant), proposal.ID)
	s.Require().NoError(err)
	s.Equal("secret", intent.ClientSecret)
	s.Equal(int64(12550), *created.Amount)
	s.Equal("aud", *created.Currency)

	_, err = payments.ConfirmPayment(s.actor(applicant), proposal.ID, &ConfirmPaymentRequest{PaymentIntentID: "pi_1"})
	s.ErrorIs(err, ErrInvalidState)

	status = stripe.PaymentIntentStatusSucceeded
	paid, err := payments.ConfirmPayment(s.actor(applicant), proposal.ID, &ConfirmPaymentRequest{PaymentIntentID: "pi_1"})
	s.Require().NoError(err)
	s.True(paid.FeePaid)
	s.Equal("pi_1", paid.FeePaymentRef)

	_, err = payments.CreatePaymentIntent(s.actor(applicant), proposal.ID)
	s.ErrorIs(err, ErrAlreadyPaid)

	_, err = payments.ProcessRefund(s.actor(applicant), proposal.ID, &RefundRequest{Reason: "withdrawn"})
	s.ErrorIs(err, ErrUnauthorized)

	refundedProposal, err := payments.ProcessRefund(s.actor(officer), proposal.ID, &RefundRequest{Reason: "withdrawn"})
	s.Require().NoError(err)
	s.False(refundedProposal.FeePaid)
	s.Equal("pi_1", refunded)
}

func (s *ServiceTestSuite) TestPaymentGuards() {
	payments := NewPaymentService(s.db, s.cfg, s.revisions, s.events)
	applicant := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	free := s.createProposalType(0)
	proposal, err := s.proposals().Create(s.actor(applicant), &CreateProposalRequest{ProposalTypeID: free.ID})
	s.Require().NoError(err)

	_, err = payments.CreatePaymentIntent(s.actor(applicant), proposal.ID)
	s.ErrorIs(err, ErrPaymentNotConfigured)

	s.cfg.Payment.StripeSecretKey = "sk_test_123"
	_, err = payments.CreatePaymentIntent(s.actor(applicant), proposal.ID)
	s.ErrorIs(err, ErrNoFeeDue)

	payments.getIntent = func(id string) (*stripe.PaymentIntent, error) {
		return nil, errors.New("network down")
	}
	_, err = payments.ConfirmPayment(s.actor(applicant), proposal.ID, &ConfirmPaymentRequest{PaymentIntentID: "pi_x"})
	s.Error(err)
	s.NotErrorIs(err, ErrInvalidState)
}

func (s *ServiceTestSuite) TestAdminUsersAndDashboard() {
	admin := s.createUser(models.UserRoleAdmin, "Ann", "Admin")
	customer := s.createUser(models.UserRoleCustomer, "Ada", "Lovelace")
	officer := s.createUser(models.UserRoleOfficer, "Olive", "Officer")
	s.issuedApproval(customer, officer)
	adminService := NewAdminService(s.db)

	stats, err := adminService.GetDashboardStats()
	s.Require().NoError(err)
	s.Equal(int64(1), stats.TotalCustomers)
	s.Equal(int64(1), stats.CurrentApprovals)
	s.Equal(int64(1), stats.ProposalsLodgedMonth)

	role := models.UserRoleCustomer
	users, total, err := adminService.GetUsers(AdminUserFilter{
		PaginationParams: utils.PaginationParams{Page: 1, Limit: 20, Sort: "email", Order: "asc"},
		Role:             &role,
	})
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(customer.ID, users[0].ID)

	suspended := models.UserStatusSuspended
	updated, err := adminService.UpdateUser(customer.ID, &UpdateUserRequest{Status: &suspended, Reason: "abuse"}, admin.ID)
	s.Require().NoError(err)
	s.Equal(models.UserStatusSuspended, updated.Status)

	_, err = adminService.UpdateUser(admin.ID, &UpdateUserRequest{Status: &suspended}, admin.ID)
	s.ErrorIs(err, ErrInvalidState)

	_, err = adminService.UpdateUser(uuid.New(), &UpdateUserRequest{Status: &suspended}, admin.ID)
	s.ErrorIs(err, ErrNotFound)

	analytics, err := adminService.GetAnalytics(time.Now().UTC().Add(-time.Hour), time.Now().UTC().Add(time.Hour), []string{"proposals_lodged", "approvals_issued", "bogus"})
	s.Require().NoError(err)
	s.Equal(int64(1), analytics["proposals_lodged"])
	s.Equal(int64(1), analytics["approvals_issued"])
	s.NotContains(analytics, "bogus")
}
