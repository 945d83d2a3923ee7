// Package registry maps outbox event types to the Pub/Sub topic they are
// published on and the payload type their envelope carries.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	decode        func(json.RawMessage) (any, error)
}

// route builds a descriptor whose payload decodes into a fresh *T.
func route[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     event,
		AggregateType: aggregate,
		Topic:         topic,
		decode: func(raw json.RawMessage) (any, error) {
			v := new(T)
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	routes map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that will never publish no matter how often
// it is retried.
type NonRetryableError struct {
	Err error
}

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func permanent(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

// NewEventRegistry routes verification and onboarding events to the
// verification topic, which falls back to the domain topic when unset.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	domain := cfg.DomainTopic
	if domain == "" {
		return nil, errors.New("domain topic is required")
	}
	review := cfg.VerificationTopic
	if review == "" {
		review = domain
	}

	r := &EventRegistry{routes: make(map[enums.OutboxEventType]EventDescriptor)}
	for _, d := range []EventDescriptor{
		route[payloads.VerificationDecidedEvent](enums.EventVerificationDecided, enums.AggregateUser, review),
		route[payloads.OnboardingSubmittedEvent](enums.EventOnboardingSubmitted, enums.AggregateUser, review),
		route[payloads.InquiryCreatedEvent](enums.EventInquiryCreated, enums.AggregateInquiry, domain),
		route[payloads.EventCreatedEvent](enums.EventEventCreated, enums.AggregateEvent, domain),
		route[payloads.PrivacyPolicyPublishedEvent](enums.EventPrivacyPolicyPublished, enums.AggregatePrivacyPolicy, domain),
	} {
		r.routes[d.EventType] = d
	}
	return r, nil
}

// Topics is sorted and free of duplicates.
func (r *EventRegistry) Topics() []string {
	set := make(map[string]struct{}, len(r.routes))
	for _, d := range r.routes {
		set[d.Topic] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Resolve checks the row against its route and decodes the payload. Every
// error it returns is a NonRetryableError.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	d, ok := r.routes[row.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", row.EventType)
	case d.AggregateType != row.AggregateType:
		return nil, permanent("event %s belongs to %s aggregates, row has %s", row.EventType, d.AggregateType, row.AggregateType)
	case row.AggregateID == uuid.Nil:
		return nil, permanent("event %s has no aggregate id", row.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, permanent("decode envelope: %w", err)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, permanent("event %s has an empty payload", row.EventType)
	}
	payload, err := d.decode(env.Data)
	if err != nil {
		return nil, permanent("decode %s payload: %w", row.EventType, err)
	}
	return &ResolvedEvent{Descriptor: d, Envelope: env, Payload: payload}, nil
}
