// internal/services/event_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/permitdesk/licensing-backend/internal/config"
)

// Domain events published on NATS.
const (
	EventIdentificationUploaded = "identification_uploaded"
	EventProposalSubmitted      = "proposal_submitted"
	EventProposalStatusChanged  = "proposal_status_changed"
	EventReferralSent           = "referral_sent"
	EventApprovalIssued         = "approval_issued"
	EventApprovalStatusChanged  = "approval_status_changed"
	EventComplianceDue          = "compliance_due"
	EventLicenceRenewalDue      = "licence_renewal_due"
	EventApplicationFeePaid     = "application_fee_paid"
)

type Event struct {
	Name       string                 `json:"event"`
	OccurredAt time.Time              `json:"occurred_at"`
	Data       map[string]interface{} `json:"data"`
}

// EventService publishes domain events. Without a NATS URL events are only
// logged.
type EventService struct {
	nc     *nats.Conn
	prefix string
	mu     sync.Mutex
	closed bool
}

func NewEventService(cfg *config.Config) (*EventService, error) {
	s := &EventService{prefix: cfg.NATS.SubjectPrefix}
	if cfg.NATS.URL == "" {
		return s, nil
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("licensing-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logrus.WithError(err).Warn("Disconnected from NATS")
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	s.nc = nc
	return s, nil
}

// Subject is the NATS subject an event is published on.
func (s *EventService) Subject(event string) string {
	if s.prefix == "" {
		return event
	}
	return s.prefix + "." + event
}

func (s *EventService) Publish(ctx context.Context, event string, data map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}

	payload, err := json.Marshal(Event{Name: event, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	nc, closed := s.nc, s.closed
	s.mu.Unlock()

	if nc == nil || closed {
		logrus.WithFields(logrus.Fields{"subject": s.Subject(event), "data": data}).Debug("Event not published, NATS not configured")
		return nil
	}
	return nc.Publish(s.Subject(event), payload)
}

// PublishAsync publishes off the request path and logs failures.
func (s *EventService) PublishAsync(event string, data map[string]interface{}) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Publish(ctx, event, data); err != nil {
			logrus.WithError(err).WithField("event", event).Warn("Failed to publish event")
		}
	}()
}

func (s *EventService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
	}
}
