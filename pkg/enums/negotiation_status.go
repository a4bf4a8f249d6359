package enums

import "fmt"

// NegotiationStatus tracks a price negotiation between a customer and a farmer.
type NegotiationStatus string

const (
	NegotiationStatusPending  NegotiationStatus = "pending"
	NegotiationStatusAccepted NegotiationStatus = "accepted"
	NegotiationStatusRejected NegotiationStatus = "rejected"
	NegotiationStatusCounter  NegotiationStatus = "counter"
)

var validNegotiationStatuses = []NegotiationStatus{
	NegotiationStatusPending,
	NegotiationStatusAccepted,
	NegotiationStatusRejected,
	NegotiationStatusCounter,
}

// String implements fmt.Stringer.
func (s NegotiationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known NegotiationStatus.
func (s NegotiationStatus) IsValid() bool {
	for _, candidate := range validNegotiationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s NegotiationStatus) IsTerminal() bool {
	return s == NegotiationStatusAccepted || s == NegotiationStatusRejected
}

// IsOpen reports whether the negotiation can still be accepted, rejected or countered.
func (s NegotiationStatus) IsOpen() bool {
	return s == NegotiationStatusPending || s == NegotiationStatusCounter
}

// ParseNegotiationStatus converts raw input into a NegotiationStatus.
func ParseNegotiationStatus(value string) (NegotiationStatus, error) {
	for _, candidate := range validNegotiationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid negotiation status %q", value)
}
