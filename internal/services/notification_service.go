// internal/services/notification_service.go
package services

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/models"
)

type NotificationService struct {
	config *config.Config
	send   func(to, subject, body string) error
}

type EmailTemplate struct {
	Subject string
	Body    string
}

func NewNotificationService(config *config.Config) *NotificationService {
	s := &NotificationService{config: config}
	s.send = s.sendEmail
	return s
}

func (s *NotificationService) SendProposalSubmitted(proposal *models.Proposal, applicant *models.EmailUser) error {
	return s.notify(applicant.Email, "proposal_submitted", map[string]interface{}{
		"Name":            applicant.FullName(),
		"LodgementNumber": proposal.LodgementNumber,
		"ProposalURL":     fmt.Sprintf("%s/proposals/%s", s.config.ExternalURL(), proposal.ID),
	}, proposal.LodgementNumber)
}

func (s *NotificationService) SendProposalStatusChanged(proposal *models.Proposal, applicant *models.EmailUser) error {
	return s.notify(applicant.Email, "proposal_status", map[string]interface{}{
		"Name":            applicant.FullName(),
		"LodgementNumber": proposal.LodgementNumber,
		"Status":          string(proposal.CustomerStatus),
	}, proposal.LodgementNumber)
}

func (s *NotificationService) SendReferralRequest(referral *models.Referral, proposal *models.Proposal, referee *models.EmailUser) error {
	return s.notify(referee.Email, "referral_request", map[string]interface{}{
		"Name":            referee.FullName(),
		"LodgementNumber": proposal.LodgementNumber,
		"Text":            referral.Text,
	}, proposal.LodgementNumber)
}

func (s *NotificationService) SendApprovalIssued(approval *models.Approval, applicant *models.EmailUser) error {
	return s.notify(applicant.Email, "approval_issued", map[string]interface{}{
		"Name":            applicant.FullName(),
		"LodgementNumber": approval.LodgementNumber,
		"StartDate":       approval.StartDate.Format("02/01/2006"),
		"ExpiryDate":      approval.ExpiryDate.Format("02/01/2006"),
	}, approval.LodgementNumber)
}

func (s *NotificationService) SendComplianceReminder(compliance *models.Compliance, holder *models.EmailUser) error {
	return s.notify(holder.Email, "compliance_reminder", map[string]interface{}{
		"Name":            holder.FullName(),
		"LodgementNumber": compliance.LodgementNumber,
		"Requirement":     compliance.Requirement,
		"DueDate":         compliance.DueDate.Format("02/01/2006"),
		"Status":          string(compliance.ProcessingStatus),
	}, compliance.LodgementNumber)
}

func (s *NotificationService) SendLicenceRenewalNotice(licence *models.WildlifeLicence, holder *models.EmailUser) error {
	expiry := ""
	if licence.EndDate != nil {
		expiry = licence.EndDate.Format("02/01/2006")
	}
	return s.notify(holder.Email, "licence_renewal", map[string]interface{}{
		"Name":        holder.FullName(),
		"Licence":     licence.Reference(),
		"LicenceType": licence.LicenceType,
		"ExpiryDate":  expiry,
	}, licence.Reference())
}

func (s *NotificationService) notify(to, templateType string, data map[string]interface{}, reference string) error {
	tmpl := s.getEmailTemplate(templateType)
	body, err := s.renderTemplate(tmpl.Body, data)
	if err != nil {
		return fmt.Errorf("failed to render email template: %w", err)
	}
	subject := tmpl.Subject
	if reference != "" {
		subject += " - " + reference
	}
	return s.send(to, subject, body)
}

// Helper methods
func (s *NotificationService) sendEmail(to, subject, body string) error {
	if s.config.Email.SMTPHost == "" {
		logrus.WithFields(logrus.Fields{"to": to, "subject": subject}).Info("Email not sent, SMTP not configured")
		return nil
	}

	auth := smtp.PlainAuth("", s.config.Email.SMTPUsername, s.config.Email.SMTPPassword, s.config.Email.SMTPHost)

	from := fmt.Sprintf("%s <%s>", s.config.Email.FromName, s.config.Email.FromEmail)
	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", from, to, subject, body))

	addr := fmt.Sprintf("%s:%s", s.config.Email.SMTPHost, s.config.Email.SMTPPort)
	return smtp.SendMail(addr, auth, s.config.Email.FromEmail, []string{to}, msg)
}

func (s *NotificationService) renderTemplate(templateStr string, data interface{}) (string, error) {
	tmpl, err := template.New("email").Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (s *NotificationService) getEmailTemplate(templateType string) EmailTemplate {
	templates := map[string]EmailTemplate{
		"proposal_submitted": {
			Subject: "Proposal submitted",
			Body: `<html><body>
	<p>Dear {{.Name}},</p>
	<p>Your proposal {{.LodgementNumber}} has been submitted and is with an assessor.</p>
	<p><a href="{{.ProposalURL}}">View your proposal</a></p>
</body></html>`,
		},
		"proposal_status": {
			Subject: "Proposal update",
			Body: `<html><body>
	<p>Dear {{.Name}},</p>
	<p>The status of proposal {{.LodgementNumber}} is now: {{.Status}}.</p>
</body></html>`,
		},
		"referral_request": {
			Subject: "Referral requested",
			Body: `<html><body>
	<p>Dear {{.Name}},</p>
	<p>Proposal {{.LodgementNumber}} has been referred to you for comment.</p>
	{{if .Text}}<p>{{.Text}}</p>{{end}}
</body></html>`,
		},
		"approval_issued": {
			Subject: "Approval issued",
			Body: `<html><body>
	<p>Dear {{.Name}},</p>
	<p>Approval {{.LodgementNumber}} has been issued. It runs from {{.StartDate}} to {{.ExpiryDate}}.</p>
</body></html>`,
		},
		"compliance_reminder": {
			Subject: "Compliance reminder",
			Body: `<html><body>
	<p>Dear {{.Name}},</p>
	<p>Compliance {{.LodgementNumber}} is {{.Status}} (due {{.DueDate}}).</p>
	<p>Requirement: {{.Requirement}}</p>
</body></html>`,
		},
		"licence_renewal": {
			Subject: "Licence renewal notice",
			Body: `<html><body>
	<p>Dear {{.Name}},</p>
	<p>Your {{.LicenceType}} licence {{.Licence}} expires on {{.ExpiryDate}}. Please lodge a renewal.</p>
</body></html>`,
		},
	}

	if template, exists := templates[templateType]; exists {
		return template
	}

	// Default template
	return EmailTemplate{
		Subject: "Notification",
		Body:    "<p>{{.Message}}</p>",
	}
}
