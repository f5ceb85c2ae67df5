package dto

import "time"

// ReferralCodeResponse carries a code and its absolute expiration.
type ReferralCodeResponse struct {
	Code           string    `json:"code"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// EmailRequest payload for code lookup by referrer email.
type EmailRequest struct {
	Email string `json:"email"`
}

// ReferralResponse is one recruited user in a referral listing.
type ReferralResponse struct {
	ReferralUsername string `json:"referral_username"`
	ReferralEmail    string `json:"referral_email"`
}
