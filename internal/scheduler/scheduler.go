// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/permitdesk/licensing-backend/internal/config"
)

type ComplianceJobs interface {
	MarkDueAndOverdue(now time.Time, dueWithin time.Duration) (int, error)
	SendReminders() (int, error)
}

type ApprovalJobs interface {
	ExpireDue(now time.Time) (int, error)
}

type LicenceJobs interface {
	SendRenewalNotices(now time.Time, window time.Duration) (int, error)
}

// Scheduler runs the nightly housekeeping: compliance due dates and
// reminders, approval expiry and licence renewal notices.
type Scheduler struct {
	cron        *cron.Cron
	cfg         config.SchedulerConfig
	compliances ComplianceJobs
	approvals   ApprovalJobs
	licences    LicenceJobs
	now         func() time.Time
}

func New(cfg config.SchedulerConfig, compliances ComplianceJobs, approvals ApprovalJobs, licences LicenceJobs) (*Scheduler, error) {
	logger := cron.PrintfLogger(logrus.StandardLogger())

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		)),
		cfg:         cfg,
		compliances: compliances,
		approvals:   approvals,
		licences:    licences,
		now:         func() time.Time { return time.Now().UTC() },
	}

	if _, err := s.cron.AddFunc(cfg.ComplianceSpec, s.RunCompliances); err != nil {
		return nil, fmt.Errorf("invalid compliance schedule %q: %w", cfg.ComplianceSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.LicenceRenewalSpec, s.RunRenewals); err != nil {
		return nil, fmt.Errorf("invalid renewal schedule %q: %w", cfg.LicenceRenewalSpec, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	logrus.WithFields(logrus.Fields{
		"compliance_spec": s.cfg.ComplianceSpec,
		"renewal_spec":    s.cfg.LicenceRenewalSpec,
	}).Info("Starting scheduler")
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs, up to timeout.
func (s *Scheduler) Stop(timeout time.Duration) {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(timeout):
		logrus.Warn("Scheduler jobs still running at shutdown")
	}
}

// RunCompliances refreshes compliance due/overdue status and then emails
// reminders for the ones that became due.
func (s *Scheduler) RunCompliances() {
	now := s.now()
	dueWithin := time.Duration(s.cfg.ComplianceDueDays) * 24 * time.Hour

	s.run("compliance_status", func() (int, error) {
		return s.compliances.MarkDueAndOverdue(now, dueWithin)
	})
	s.run("compliance_reminders", s.compliances.SendReminders)
}

// RunRenewals expires lapsed approvals and sends licence renewal notices.
func (s *Scheduler) RunRenewals() {
	now := s.now()
	window := time.Duration(s.cfg.RenewalNoticeDays) * 24 * time.Hour

	s.run("approval_expiry", func() (int, error) {
		return s.approvals.ExpireDue(now)
	})
	s.run("licence_renewal_notices", func() (int, error) {
		return s.licences.SendRenewalNotices(now, window)
	})
}

func (s *Scheduler) run(job string, fn func() (int, error)) {
	start := time.Now()
	count, err := fn()

	entry := logrus.WithFields(logrus.Fields{
		"job":      job,
		"count":    count,
		"duration": time.Since(start).Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("Scheduled job failed")
		return
	}
	entry.Info("Scheduled job finished")
}
