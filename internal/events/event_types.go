package events

import "time"

// EventType enumerates referral lifecycle events.
type EventType string

const (
	EventUserRegistered      EventType = "user.registered"
	EventReferralLinked      EventType = "referral.linked"
	EventReferralCodeCreated EventType = "referral_code.created"
	EventReferralCodeDeleted EventType = "referral_code.deleted"
)

// Event is the envelope published on the dispatcher.
type Event struct {
	ID        string
	Type      EventType
	UserID    string
	Timestamp time.Time
	Payload   any
}

// UserRegisteredPayload accompanies EventUserRegistered.
type UserRegisteredPayload struct {
	Username string
	Email    string
	Referred bool
}

// ReferralLinkedPayload accompanies EventReferralLinked.
type ReferralLinkedPayload struct {
	ReferrerID string
	ReferralID string
}

// ReferralCodePayload accompanies code creation and deletion events.
type ReferralCodePayload struct {
	Code           string
	ExpirationDate time.Time
}
