package cache

import (
	"context"
	"time"
)

// Snapshot is the cached projection of a referral code. A hit answers a
// lookup without touching storage, with expiration always re-checked against
// the snapshot's own timestamp; a deleted row can stay visible only until its
// entry is evicted or the TTL lapses.
type Snapshot struct {
	Code           string    `json:"code"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// ReferralCache maps a referrer email to a code snapshot with a fixed TTL.
// Injected as a capability; tests substitute the in-memory implementation.
type ReferralCache interface {
	// Get returns the snapshot for the email, or nil on a miss.
	Get(ctx context.Context, email string) (*Snapshot, error)
	Set(ctx context.Context, email string, snap Snapshot) error
	Delete(ctx context.Context, email string) error
}
