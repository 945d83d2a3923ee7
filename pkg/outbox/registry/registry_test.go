package registry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/payloads"
)

func build(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain-topic", VerificationTopic: "verification-topic"})
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, data any) json.RawMessage {
	t.Helper()
	raw, ok := data.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(data)
		require.NoError(t, err)
	}
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}

func TestResolveVerificationDecision(t *testing.T) {
	userID := uuid.New()
	resolved, err := build(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventVerificationDecided,
		AggregateType: enums.AggregateUser,
		AggregateID:   userID,
		Payload: envelope(t, payloads.VerificationDecidedEvent{
			UserID:  userID,
			AdminID: uuid.New(),
			Action:  enums.VerificationActionReject,
			Status:  enums.VerificationStatusRejected,
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, "verification-topic", resolved.Descriptor.Topic)
	payload, ok := resolved.Payload.(*payloads.VerificationDecidedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, enums.VerificationStatusRejected, payload.Status)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())
}

func TestResolveDomainEvent(t *testing.T) {
	resolved, err := build(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventInquiryCreated,
		AggregateType: enums.AggregateInquiry,
		AggregateID:   uuid.New(),
		Payload:       envelope(t, []byte(`{"subject":"Wedding in March"}`)),
	})
	require.NoError(t, err)
	assert.Equal(t, "domain-topic", resolved.Descriptor.Topic)
	assert.IsType(t, &payloads.InquiryCreatedEvent{}, resolved.Payload)
}

func TestTopics(t *testing.T) {
	assert.Equal(t, []string{"domain-topic", "verification-topic"}, build(t).Topics())

	single, err := NewEventRegistry(config.PubSubConfig{DomainTopic: "domain-topic"})
	require.NoError(t, err)
	assert.Equal(t, []string{"domain-topic"}, single.Topics())

	_, err = NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}

func TestResolveRejectsBadRows(t *testing.T) {
	reg := build(t)
	rows := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     "order_created",
			AggregateType: enums.AggregateUser,
			AggregateID:   uuid.New(),
			Payload:       envelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventVerificationDecided,
			AggregateType: enums.AggregateEvent,
			AggregateID:   uuid.New(),
			Payload:       envelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventEventCreated,
			AggregateType: enums.AggregateEvent,
			Payload:       envelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventEventCreated,
			AggregateType: enums.AggregateEvent,
			AggregateID:   uuid.New(),
			Payload:       envelope(t, []byte("null")),
		},
		"wrong payload shape": {
			EventType:     enums.EventEventCreated,
			AggregateType: enums.AggregateEvent,
			AggregateID:   uuid.New(),
			Payload:       envelope(t, []byte(`[1,2]`)),
		},
		"broken envelope": {
			EventType:     enums.EventEventCreated,
			AggregateType: enums.AggregateEvent,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}
	for name, row := range rows {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(row)
			var permanent NonRetryableError
			assert.ErrorAs(t, err, &permanent)
		})
	}
}
