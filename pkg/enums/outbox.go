package enums

import "slices"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateUser          OutboxAggregateType = "user"
	AggregateEvent         OutboxAggregateType = "event"
	AggregateInquiry       OutboxAggregateType = "inquiry"
	AggregatePrivacyPolicy OutboxAggregateType = "privacy_policy"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateUser,
	AggregateEvent,
	AggregateInquiry,
	AggregatePrivacyPolicy,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(validAggregateTypes, a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventVerificationDecided    OutboxEventType = "verification_decided"
	EventOnboardingSubmitted    OutboxEventType = "onboarding_submitted"
	EventInquiryCreated         OutboxEventType = "inquiry_created"
	EventEventCreated           OutboxEventType = "event_created"
	EventPrivacyPolicyPublished OutboxEventType = "privacy_policy_published"
)

var validOutboxEventTypes = []OutboxEventType{
	EventVerificationDecided,
	EventOnboardingSubmitted,
	EventInquiryCreated,
	EventEventCreated,
	EventPrivacyPolicyPublished,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return slices.Contains(validOutboxEventTypes, e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", value, validOutboxEventTypes)
}
