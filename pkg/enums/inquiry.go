package enums

import "slices"

// InquiryStatus maps to the inquiry_status enum in Postgres.
type InquiryStatus string

const (
	InquiryStatusSent      InquiryStatus = "sent"
	InquiryStatusViewed    InquiryStatus = "viewed"
	InquiryStatusResponded InquiryStatus = "responded"
	InquiryStatusClosed    InquiryStatus = "closed"
)

var validInquiryStatuses = []InquiryStatus{
	InquiryStatusSent,
	InquiryStatusViewed,
	InquiryStatusResponded,
	InquiryStatusClosed,
}

func (s InquiryStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InquiryStatus.
func (s InquiryStatus) IsValid() bool {
	return slices.Contains(validInquiryStatuses, s)
}

// ParseInquiryStatus converts raw input into an InquiryStatus.
func ParseInquiryStatus(value string) (InquiryStatus, error) {
	return parse("inquiry status", value, validInquiryStatuses)
}
