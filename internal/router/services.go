// internal/router/services.go
package router

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/services"
)

// Services is the wired service graph shared by the HTTP layer and the
// scheduler.
type Services struct {
	Storage       *services.StorageService
	Events        *services.EventService
	Notifications *services.NotificationService
	Revisions     *services.RevisionService

	Auth       *services.AuthService
	User       *services.UserService
	Profile    *services.ProfileService
	Proposal   *services.ProposalService
	Referral   *services.ReferralService
	Approval   *services.ApprovalService
	Compliance *services.ComplianceService
	Catalog    *services.CatalogService
	Licence    *services.LicenceService
	CommsLog   *services.CommsLogService
	Payment    *services.PaymentService
	Admin      *services.AdminService
}

func NewServices(db *gorm.DB, cfg *config.Config) (*Services, error) {
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	eventService, err := services.NewEventService(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize events: %w", err)
	}

	notificationService := services.NewNotificationService(cfg)
	revisionService := services.NewRevisionService(db)

	return &Services{
		Storage:       storageService,
		Events:        eventService,
		Notifications: notificationService,
		Revisions:     revisionService,

		Auth:       services.NewAuthService(db, cfg),
		User:       services.NewUserService(db, storageService, eventService),
		Profile:    services.NewProfileService(db),
		Proposal:   services.NewProposalService(db, revisionService, storageService, notificationService, eventService),
		Referral:   services.NewReferralService(db, revisionService, notificationService, eventService),
		Approval:   services.NewApprovalService(db, revisionService, notificationService, eventService),
		Compliance: services.NewComplianceService(db, revisionService, notificationService, eventService),
		Catalog:    services.NewCatalogService(db, revisionService),
		Licence:    services.NewLicenceService(db, notificationService, eventService),
		CommsLog:   services.NewCommsLogService(db, storageService),
		Payment:    services.NewPaymentService(db, cfg, revisionService, eventService),
		Admin:      services.NewAdminService(db),
	}, nil
}

// Close releases the event connection.
func (s *Services) Close() {
	s.Events.Close()
}
