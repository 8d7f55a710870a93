// internal/database/connection.go
package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/permitdesk/licensing-backend/internal/config"
	"github.com/permitdesk/licensing-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres", "":
		if err := EnsureDatabase(cfg); err != nil {
			return nil, err
		}
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", dialector.Name()).Info("Database connection established")
	return db, nil
}

// EnsureDatabase creates the configured postgres database when it is missing.
func EnsureDatabase(cfg config.DatabaseConfig) error {
	admin, err := gorm.Open(postgres.Open(cfg.AdminDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer Close(admin)

	var exists bool
	if err := admin.Raw("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = ?)", cfg.Database).Scan(&exists).Error; err != nil {
		return fmt.Errorf("failed to look up database %q: %w", cfg.Database, err)
	}
	if exists {
		return nil
	}

	if err := admin.Exec("CREATE DATABASE " + pq.QuoteIdentifier(cfg.Database)).Error; err != nil {
		return fmt.Errorf("failed to create database %q: %w", cfg.Database, err)
	}
	logrus.WithField("database", cfg.Database).Info("Created database")
	return nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	}
}

// Models lists every table managed by migrations.
func Models() []interface{} {
	return []interface{}{
		&models.EmailUser{},
		&models.Address{},
		&models.Profile{},
		&models.Document{},
		&models.ProposalType{},
		&models.HelpPage{},
		&models.Proposal{},
		&models.Referral{},
		&models.Approval{},
		&models.Compliance{},
		&models.WildlifeLicence{},
		&models.CommunicationsLogEntry{},
		&models.Revision{},
		&models.Version{},
		&models.LodgementSequence{},
		&models.AuditLog{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		// User indexes
		"CREATE INDEX IF NOT EXISTS idx_email_users_names ON email_users(last_name, first_name)",
		"CREATE INDEX IF NOT EXISTS idx_email_users_role_status ON email_users(role, status)",

		// Proposal indexes
		"CREATE INDEX IF NOT EXISTS idx_proposals_applicant_status ON proposals(applicant_id, processing_status)",
		"CREATE INDEX IF NOT EXISTS idx_proposals_created_at ON proposals(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_referrals_referee_status ON referrals(referee_id, processing_status)",

		// Approval and compliance indexes
		"CREATE INDEX IF NOT EXISTS idx_approvals_status_expiry ON approvals(status, expiry_date)",
		"CREATE INDEX IF NOT EXISTS idx_compliances_status_due ON compliances(processing_status, due_date)",

		// Wildlife indexes
		"CREATE INDEX IF NOT EXISTS idx_wildlife_licences_holder ON wildlife_licences(holder_id, end_date)",
		"CREATE INDEX IF NOT EXISTS idx_comms_log_customer ON communications_log_entries(customer_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_comms_log_officer ON communications_log_entries(officer_id, created_at)",

		// History indexes
		"CREATE INDEX IF NOT EXISTS idx_revisions_date ON revisions(date_created DESC)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logrus.WithError(err).WithField("statement", index).Warn("Failed to create index")
		}
	}
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
