// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/handlers"
	"github.com/permitdesk/licensing-backend/internal/middleware"
	"github.com/permitdesk/licensing-backend/internal/services"
)

// Version is reported by /health and the version command.
var Version = "dev"

func Initialize(db *gorm.DB, cfg *config.Config, svc *Services) *gin.Engine {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(svc.Auth)
	userHandler := handlers.NewUserHandler(svc.User)
	profileHandler := handlers.NewProfileHandler(svc.Profile)
	proposalHandler := handlers.NewProposalHandler(svc.Proposal, cfg.ExternalURL())
	referralHandler := handlers.NewReferralHandler(svc.Referral)
	approvalHandler := handlers.NewApprovalHandler(svc.Approval)
	complianceHandler := handlers.NewComplianceHandler(svc.Compliance)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	licenceHandler := handlers.NewLicenceHandler(svc.Licence, cfg.Frontend.BaseURL)
	commsLogHandler := handlers.NewCommsLogHandler(svc.CommsLog)
	historyHandler := handlers.NewHistoryHandler(svc.Revisions)
	paymentHandler := handlers.NewPaymentHandler(svc.Payment)
	verificationHandler := handlers.NewVerificationHandler(svc.Approval)
	adminHandler := handlers.NewAdminHandler(svc.Admin)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.OptionalAuth())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Dashboard form post
	r.POST("/proposal/", middleware.AuthRequired(), middleware.UploadRateLimit(), proposalHandler.LegacySaveProposalForm)

	// Version history and compare
	history := r.Group("/history")
	history.Use(middleware.AuthRequired(), middleware.OfficerRequired())
	for _, kind := range services.HistoryKinds() {
		history.GET("/"+kind+"/:id/", historyHandler.Kind(kind))
	}

	// Wildlife licensing
	wl := r.Group("/wl")
	wl.Use(middleware.AuthRequired())
	{
		wl.GET("/identification", userHandler.GetIdentification)
		wl.POST("/identification", middleware.UploadRateLimit(), userHandler.UploadIdentification)
		wl.GET("/documents/:id/file", userHandler.DownloadDocument)

		customer := wl.Group("")
		customer.Use(middleware.CustomerRequired())
		{
			customer.GET("/account", userHandler.GetAccount)
			customer.PUT("/account", userHandler.UpdateAccount)
			customer.GET("/documents", userHandler.GetDocuments)

			customer.GET("/profiles", profileHandler.ListProfiles)
			customer.POST("/profiles", profileHandler.CreateProfile)
			customer.GET("/profiles/:id", profileHandler.GetProfile)
			customer.PUT("/profiles/:id", profileHandler.UpdateProfile)
			customer.DELETE("/profiles/:id", profileHandler.DeleteProfile)
		}

		officer := wl.Group("")
		officer.Use(middleware.OfficerRequired())
		{
			officer.GET("/customers/search", userHandler.SearchCustomers)

			officer.GET("/licences", licenceHandler.GetLicences)
			officer.GET("/licences/:id", licenceHandler.GetLicence)
			officer.GET("/licences/:id/renewal-pdf", licenceHandler.RenewalPDF)
			officer.POST("/licences/renewal-pdf", licenceHandler.BulkRenewalPDF)

			officer.GET("/users/:id/comms-log", commsLogHandler.GetCommsLog)
			officer.POST("/users/:id/comms-log", middleware.UploadRateLimit(), commsLogHandler.AddCommsLogEntry)
		}
	}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Public
		v1.GET("/verify/approvals/:number", verificationHandler.VerifyApproval)
		v1.GET("/proposal-types", catalogHandler.GetProposalTypes)
		v1.GET("/proposal-types/:id", catalogHandler.GetProposalType)
		v1.GET("/help-pages", catalogHandler.GetHelpPages)
		v1.GET("/help-pages/:application_type", catalogHandler.GetLatestHelpPage)

		proposals := v1.Group("/proposals")
		proposals.Use(middleware.AuthRequired())
		{
			proposals.POST("", proposalHandler.CreateProposal)
			proposals.GET("", proposalHandler.GetProposals)
			proposals.GET("/:id", proposalHandler.GetProposal)
			proposals.DELETE("/:id", proposalHandler.DiscardProposal)
			proposals.POST("/:id/form", middleware.UploadRateLimit(), proposalHandler.SaveProposalForm)
			proposals.POST("/:id/submit", proposalHandler.SubmitProposal)
			proposals.GET("/:id/referrals", referralHandler.GetProposalReferrals)

			proposals.POST("/:id/payment/intent", paymentHandler.CreatePaymentIntent)
			proposals.POST("/:id/payment/confirm", paymentHandler.ConfirmPayment)

			staff := proposals.Group("")
			staff.Use(middleware.OfficerRequired())
			{
				staff.PUT("/:id/status", proposalHandler.ChangeProposalStatus)
				staff.POST("/:id/referrals", referralHandler.SendReferral)
				staff.POST("/:id/approval", approvalHandler.IssueApproval)
				staff.POST("/:id/payment/refund", paymentHandler.ProcessRefund)
			}
		}

		referrals := v1.Group("/referrals")
		referrals.Use(middleware.AuthRequired(), middleware.OfficerRequired())
		{
			referrals.PUT("/:id/complete", referralHandler.CompleteReferral)
			referrals.PUT("/:id/recall", referralHandler.RecallReferral)
		}

		approvals := v1.Group("/approvals")
		approvals.Use(middleware.AuthRequired())
		{
			approvals.GET("", approvalHandler.GetApprovals)
			approvals.GET("/:id", approvalHandler.GetApproval)
			approvals.PUT("/:id/status", approvalHandler.ChangeApprovalStatus)
		}

		compliances := v1.Group("/compliances")
		compliances.Use(middleware.AuthRequired())
		{
			compliances.GET("", complianceHandler.GetCompliances)
			compliances.GET("/:id", complianceHandler.GetCompliance)
			compliances.POST("/:id/submit", complianceHandler.SubmitCompliance)
			compliances.POST("", middleware.OfficerRequired(), complianceHandler.CreateCompliance)
			compliances.PUT("/:id/assess", middleware.OfficerRequired(), complianceHandler.AssessCompliance)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/users", adminHandler.GetUsers)
			admin.PUT("/users/:id", adminHandler.UpdateUser)
			admin.GET("/audit-logs", adminHandler.GetAuditLogs)
			admin.GET("/analytics", adminHandler.GetAnalytics)

			admin.POST("/proposal-types", catalogHandler.CreateProposalType)
			admin.PUT("/proposal-types/:id", catalogHandler.UpdateProposalType)
			admin.POST("/help-pages", catalogHandler.SaveHelpPage)
		}
	}

	// Locally stored documents
	if cfg.AWS.AccessKeyID == "" {
		r.Static("/uploads", cfg.Storage.LocalRoot)
	}

	return r
}
