// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"
	KeyWarning = "warning"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthTokenExpired       = "auth.token_expired"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthCustomerRequired   = "auth.customer_required"
	KeyAuthOfficerRequired    = "auth.officer_required"

	// Users and accounts
	KeyUserNotFound               = "user.not_found"
	KeyUserSuspended              = "user.suspended"
	KeyAccountUpdated             = "account.updated"
	KeyAccountNameChanged         = "account.name_changed"
	KeyAccountIdentificationEmpty = "account.identification_missing"

	// Profiles
	KeyProfileCreated  = "profile.created"
	KeyProfileUpdated  = "profile.updated"
	KeyProfileDeleted  = "profile.deleted"
	KeyProfileNotFound = "profile.not_found"
	KeyProfileNotOwner = "profile.not_owner"

	// Identification
	KeyIdentificationUploaded = "identification.uploaded"

	// Proposals
	KeyProposalCreated           = "proposal.created"
	KeyProposalNotFound          = "proposal.not_found"
	KeyProposalSaved             = "proposal.saved"
	KeyProposalSubmitted         = "proposal.submitted"
	KeyProposalStatusChanged     = "proposal.status_changed"
	KeyProposalNotEditable       = "proposal.not_editable"
	KeyProposalInvalidTransition = "proposal.invalid_transition"
	KeyProposalFormError         = "proposal.form_error"

	// Referrals
	KeyReferralSent      = "referral.sent"
	KeyReferralCompleted = "referral.completed"
	KeyReferralNotFound  = "referral.not_found"

	// Approvals
	KeyApprovalIssued        = "approval.issued"
	KeyApprovalStatusChanged = "approval.status_changed"
	KeyApprovalNotFound      = "approval.not_found"

	// Compliances
	KeyComplianceCreated   = "compliance.created"
	KeyComplianceSubmitted = "compliance.submitted"
	KeyComplianceAccepted  = "compliance.accepted"
	KeyComplianceAmendment = "compliance.amendment_requested"
	KeyComplianceNotFound  = "compliance.not_found"

	// Proposal types and help pages
	KeyProposalTypeSaved    = "proposal_type.saved"
	KeyProposalTypeDeleted  = "proposal_type.deleted"
	KeyProposalTypeNotFound = "proposal_type.not_found"
	KeyHelpPageSaved        = "help_page.saved"
	KeyHelpPageDeleted      = "help_page.deleted"
	KeyHelpPageNotFound     = "help_page.not_found"

	// History
	KeyHistoryNotFound        = "history.not_found"
	KeyHistoryVersionMismatch = "history.version_mismatch"
	KeyHistorySameVersion     = "history.same_version"

	// Wildlife licensing
	KeyLicenceNotFound  = "licence.not_found"
	KeyCommsLogNotValid = "comms_log.not_valid"
	KeyCommsLogNotFound = "comms_log.not_found"

	// Payments
	KeyPaymentSuccess       = "payment.success"
	KeyPaymentFailed        = "payment.failed"
	KeyPaymentAlreadyPaid   = "payment.already_paid"
	KeyPaymentNotConfigured = "payment.not_configured"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// File Upload
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileInvalidType  = "file.invalid_type"
	KeyFileTooLarge     = "file.too_large"

	// Rate limiting
	KeyRateLimited = "rate.limited"
)
