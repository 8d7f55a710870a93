// internal/services/admin_service.go
package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/permitdesk/licensing-backend/internal/models"
	"github.com/permitdesk/licensing-backend/internal/utils"
)

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalCustomers        int64   `json:"total_customers"`
	NewCustomersThisMonth int64   `json:"new_customers_this_month"`
	ProposalsInProgress   int64   `json:"proposals_in_progress"`
	ProposalsWithReferral int64   `json:"proposals_with_referral"`
	ProposalsLodgedMonth  int64   `json:"proposals_lodged_this_month"`
	CurrentApprovals      int64   `json:"current_approvals"`
	ApprovalsExpiring     int64   `json:"approvals_expiring_30_days"`
	CompliancesDue        int64   `json:"compliances_due"`
	CompliancesOverdue    int64   `json:"compliances_overdue"`
	FeesCollected         float64 `json:"fees_collected"`
	CustomerGrowth        float64 `json:"customer_growth"`
}

type AdminUserFilter struct {
	utils.PaginationParams
	Role          *models.UserRole   `json:"role,omitempty"`
	Status        *models.UserStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
}

type AdminAuditFilter struct {
	utils.PaginationParams
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ResourceType string     `json:"resource_type,omitempty"`
}

type UpdateUserRequest struct {
	Role   *models.UserRole   `json:"role,omitempty" validate:"omitempty,oneof=customer officer assessor admin"`
	Status *models.UserStatus `json:"status,omitempty" validate:"omitempty,oneof=active suspended"`
	Reason string             `json:"reason" validate:"max=500"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats() (*AdminDashboardStats, error) {
	stats := &AdminDashboardStats{}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	// Customers
	customers := s.db.Model(&models.EmailUser{}).Where("role = ?", models.UserRoleCustomer).Session(&gorm.Session{})
	if err := customers.Count(&stats.TotalCustomers).Error; err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	customers.Where("created_at >= ?", monthStart).Count(&stats.NewCustomersThisMonth)

	// Proposals
	inProgress := []models.ProposalProcessingStatus{
		models.ProposalStatusWithAssessor,
		models.ProposalStatusWithReferral,
		models.ProposalStatusWithApprover,
		models.ProposalStatusAwaitingDocuments,
	}
	s.db.Model(&models.Proposal{}).Where("processing_status IN ?", inProgress).Count(&stats.ProposalsInProgress)
	s.db.Model(&models.Proposal{}).Where("processing_status = ?", models.ProposalStatusWithReferral).Count(&stats.ProposalsWithReferral)
	s.db.Model(&models.Proposal{}).Where("lodgement_date >= ?", monthStart).Count(&stats.ProposalsLodgedMonth)

	// Approvals
	s.db.Model(&models.Approval{}).Where("status = ?", models.ApprovalStatusCurrent).Count(&stats.CurrentApprovals)
	s.db.Model(&models.Approval{}).
		Where("status = ? AND expiry_date BETWEEN ? AND ?", models.ApprovalStatusCurrent, now, now.AddDate(0, 0, 30)).
		Count(&stats.ApprovalsExpiring)

	// Compliances
	s.db.Model(&models.Compliance{}).Where("processing_status = ?", models.ComplianceStatusDue).Count(&stats.CompliancesDue)
	s.db.Model(&models.Compliance{}).Where("processing_status = ?", models.ComplianceStatusOverdue).Count(&stats.CompliancesOverdue)

	// Fees
	s.db.Model(&models.Proposal{}).
		Joins("JOIN proposal_types ON proposal_types.id = proposals.proposal_type_id").
		Where("proposals.fee_paid = ?", true).
		Select("COALESCE(SUM(proposal_types.application_fee), 0)").Scan(&stats.FeesCollected)

	// Growth calculations
	var lastMonthCustomers int64
	customers.
		Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
		Count(&lastMonthCustomers)
	if lastMonthCustomers > 0 {
		stats.CustomerGrowth = float64(stats.NewCustomersThisMonth-lastMonthCustomers) / float64(lastMonthCustomers) * 100
	}

	return stats, nil
}

// User Management
func (s *AdminService) GetUsers(filter AdminUserFilter) ([]models.EmailUser, int64, error) {
	query := s.db.Model(&models.EmailUser{})

	// Apply filters
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != "" {
		searchTerm := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", searchTerm, searchTerm, searchTerm)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "email", "last_name", "role", "status"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	users := []models.EmailUser{}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	return users, total, nil
}

// UpdateUser changes a user's role or status. Admins cannot demote or
// suspend themselves.
func (s *AdminService) UpdateUser(userID uuid.UUID, req *UpdateUserRequest, adminID uuid.UUID) (*models.EmailUser, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var user models.EmailUser
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if user.ID == adminID {
		if (req.Role != nil && *req.Role != models.UserRoleAdmin) || (req.Status != nil && *req.Status != models.UserStatusActive) {
			return nil, fmt.Errorf("%w: admins cannot demote or suspend themselves", ErrInvalidState)
		}
	}

	oldValues := map[string]interface{}{"role": user.Role, "status": user.Status}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Status != nil {
		user.Status = *req.Status
	}

	if err := s.db.Model(&user).Select("role", "status").Updates(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	go s.createAuditLog(adminID, "UPDATE_USER", "user", &userID, map[string]interface{}{
		"old":    oldValues,
		"role":   user.Role,
		"status": user.Status,
		"reason": req.Reason,
	})

	return &user, nil
}

func (s *AdminService) GetAuditLogs(filter AdminAuditFilter) ([]models.AuditLog, int64, error) {
	query := s.db.Model(&models.AuditLog{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	allowedSortFields := []string{"created_at", "action", "resource_type"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	logs := []models.AuditLog{}
	if err := query.Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}
	return logs, total, nil
}

// GetAnalytics counts the requested metrics created between two dates.
func (s *AdminService) GetAnalytics(startDate, endDate time.Time, metrics []string) (map[string]interface{}, error) {
	analytics := make(map[string]interface{})

	for _, metric := range metrics {
		var count int64
		switch metric {
		case "customer_registrations":
			s.db.Model(&models.EmailUser{}).
				Where("role = ? AND created_at BETWEEN ? AND ?", models.UserRoleCustomer, startDate, endDate).
				Count(&count)
		case "proposals_lodged":
			s.db.Model(&models.Proposal{}).
				Where("lodgement_date BETWEEN ? AND ?", startDate, endDate).
				Count(&count)
		case "approvals_issued":
			s.db.Model(&models.Approval{}).
				Where("issue_date BETWEEN ? AND ?", startDate, endDate).
				Count(&count)
		case "compliances_lodged":
			s.db.Model(&models.Compliance{}).
				Where("lodgement_date BETWEEN ? AND ?", startDate, endDate).
				Count(&count)
		default:
			continue
		}
		analytics[metric] = count
	}

	return analytics, nil
}

// Helper methods
func (s *AdminService) createAuditLog(userID uuid.UUID, action, resourceType string, resourceID *uuid.UUID, newValues map[string]interface{}) {
	auditLog := &models.AuditLog{
		UserID:       &userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		NewValues:    models.JSONB(newValues),
	}

	if err := s.db.Create(auditLog).Error; err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to write audit log")
	}
}
