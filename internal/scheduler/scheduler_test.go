package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/permitdesk/licensing-backend/internal/config"
)

type fakeJobs struct {
	now       time.Time
	dueWithin time.Duration
	window    time.Duration
	reminders int
	expired   int
	renewals  int
	markErr   error
}

func (f *fakeJobs) MarkDueAndOverdue(now time.Time, dueWithin time.Duration) (int, error) {
	f.now, f.dueWithin = now, dueWithin
	return 0, f.markErr
}

func (f *fakeJobs) SendReminders() (int, error) {
	f.reminders++
	return 1, nil
}

func (f *fakeJobs) ExpireDue(now time.Time) (int, error) {
	f.expired++
	return 0, nil
}

func (f *fakeJobs) SendRenewalNotices(now time.Time, window time.Duration) (int, error) {
	f.renewals++
	f.window = window
	return 2, nil
}

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:            true,
		ComplianceSpec:     "0 2 * * *",
		LicenceRenewalSpec: "30 2 * * *",
		RenewalNoticeDays:  30,
		ComplianceDueDays:  14,
	}
}

func TestRunCompliances(t *testing.T) {
	jobs := &fakeJobs{}
	s, err := New(testConfig(), jobs, jobs, jobs)
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	s.RunCompliances()
	assert.Equal(t, fixed, jobs.now)
	assert.Equal(t, 14*24*time.Hour, jobs.dueWithin)
	assert.Equal(t, 1, jobs.reminders)

	// a failed status pass does not stop reminders
	jobs.markErr = errors.New("database is down")
	s.RunCompliances()
	assert.Equal(t, 2, jobs.reminders)
}

func TestRunRenewals(t *testing.T) {
	jobs := &fakeJobs{}
	s, err := New(testConfig(), jobs, jobs, jobs)
	require.NoError(t, err)

	s.RunRenewals()
	assert.Equal(t, 1, jobs.expired)
	assert.Equal(t, 1, jobs.renewals)
	assert.Equal(t, 30*24*time.Hour, jobs.window)
}

func TestInvalidSpec(t *testing.T) {
	cfg := testConfig()
	cfg.ComplianceSpec = "every now and then"

	jobs := &fakeJobs{}
	_, err := New(cfg, jobs, jobs, jobs)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	jobs := &fakeJobs{}
	s, err := New(testConfig(), jobs, jobs, jobs)
	require.NoError(t, err)

	s.Start()
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop(time.Second)
}
