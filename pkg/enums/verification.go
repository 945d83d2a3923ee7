package enums

import "slices"

// VerificationStatus is the derived status shown in the admin queue.
type VerificationStatus string

const (
	VerificationStatusPending    VerificationStatus = "pending"
	VerificationStatusApproved   VerificationStatus = "approved"
	VerificationStatusRejected   VerificationStatus = "rejected"
	VerificationStatusOnboarding VerificationStatus = "onboarding"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationStatusPending,
	VerificationStatusApproved,
	VerificationStatusRejected,
	VerificationStatusOnboarding,
}

func (s VerificationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VerificationStatus.
func (s VerificationStatus) IsValid() bool {
	return slices.Contains(validVerificationStatuses, s)
}

// ParseVerificationStatus converts raw input into a VerificationStatus.
func ParseVerificationStatus(value string) (VerificationStatus, error) {
	return parse("verification status", value, validVerificationStatuses)
}

// VerificationAction maps to the verification_action enum stored on verification_logs.
type VerificationAction string

const (
	VerificationActionApprove VerificationAction = "approve"
	VerificationActionReject  VerificationAction = "reject"
)

// IsValid reports whether the value is a known VerificationAction.
func (a VerificationAction) IsValid() bool {
	return a == VerificationActionApprove || a == VerificationActionReject
}

// ResultingStatus is the status recorded on the log row for the action.
func (a VerificationAction) ResultingStatus() VerificationStatus {
	if a == VerificationActionApprove {
		return VerificationStatusApproved
	}
	return VerificationStatusRejected
}

// OnboardingState normalizes the tri-state onboarding signal.
type OnboardingState string

const (
	OnboardingAbsent     OnboardingState = "absent"
	OnboardingIncomplete OnboardingState = "incomplete"
	OnboardingSubmitted  OnboardingState = "submitted"
)

// VerificationPriority ranks queue entries by how long they have waited.
type VerificationPriority string

const (
	VerificationPriorityHigh   VerificationPriority = "high"
	VerificationPriorityMedium VerificationPriority = "medium"
	VerificationPriorityLow    VerificationPriority = "low"
)

// Rank orders priorities with high first.
func (p VerificationPriority) Rank() int {
	switch p {
	case VerificationPriorityHigh:
		return 0
	case VerificationPriorityMedium:
		return 1
	default:
		return 2
	}
}

// ParseVerificationPriority converts raw input into a VerificationPriority.
func ParseVerificationPriority(value string) (VerificationPriority, error) {
	return parse("verification priority", value, []VerificationPriority{
		VerificationPriorityHigh, VerificationPriorityMedium, VerificationPriorityLow,
	})
}
