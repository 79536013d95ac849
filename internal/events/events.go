// Package events publishes registration domain events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// Event types.
const (
	ClassMemberAdded      = "registration.class_member_added"
	ClassMemberRemoved    = "registration.class_member_removed"
	RegistrationOpened    = "registration.opened"
	RegistrationSaved     = "registration.saved"
	RegistrationPaid      = "registration.paid"
	RegistrationCancelled = "registration.cancelled"
)

// Event is the payload sent for every registration change.
type Event struct {
	Type           string    `json:"type"`
	RegistrationID uint      `json:"registration_id"`
	UserID         uint      `json:"user_id"`
	CourseID       uint      `json:"course_id,omitempty"`
	Tuition        float64   `json:"tuition,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NATSPublisher sends events to "<subject>.<type>".
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewNATSPublisher constructs a publisher. A nil connection yields a Nop.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) Publisher {
	if conn == nil {
		return Nop{}
	}
	if subject == "" {
		subject = "coursereg"
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	subject := p.subject + "." + event.Type
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.logger.Debug().Str("subject", subject).Uint("registration_id", event.RegistrationID).Msg("event published")
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	events := r.Events()
	types := make([]string, 0, len(events))
	for _, event := range events {
		types = append(types, event.Type)
	}
	return types
}
