package enums

import "slices"

// NotificationType maps to the admin_notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeVerificationSubmitted NotificationType = "verification_submitted"
	NotificationTypeVerificationDecided   NotificationType = "verification_decided"
	NotificationTypeVerificationBacklog   NotificationType = "verification_backlog"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeVerificationSubmitted,
	NotificationTypeVerificationDecided,
	NotificationTypeVerificationBacklog,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", value, validNotificationTypes)
}
