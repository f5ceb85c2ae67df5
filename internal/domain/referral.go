package domain

import "time"

// MaxReferralCodeLength bounds the generated code string.
const MaxReferralCodeLength = 20

// ReferralCode is the single code a user may hold at a time. The row stays
// persisted after expiration until deleted or replaced; expiration is a
// derived predicate.
type ReferralCode struct {
	ID             string
	UserID         string
	Code           string
	ExpirationDate time.Time
	CreatedAt      time.Time
}

// IsExpired reports whether the code has expired relative to now.
func (c *ReferralCode) IsExpired(now time.Time) bool {
	return c.ExpirationDate.Before(now)
}

// ReferralRelationship records the one-time binding between a referrer and a
// referral. A user appears as a referral in at most one relationship ever.
type ReferralRelationship struct {
	ID         string
	ReferrerID string
	ReferralID string
	CreatedAt  time.Time
}

// Referral is the projection of a recruited user returned from listings.
type Referral struct {
	Username string
	Email    string
}
