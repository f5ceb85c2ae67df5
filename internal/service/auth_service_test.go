package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/spec-kit/referral-service/internal/config"
	"github.com/spec-kit/referral-service/internal/service"
)

type authFixture struct {
	*referralFixture
	auth *service.AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	rf := newReferralFixture(t)
	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			RefreshTokenTTLDays:   1,
			BcryptCost:            4,
		},
	}
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:   rf.users,
		Referrals:  rf.referral,
		Transactor: &fakeTransactor{users: rf.users, relationships: rf.rels},
	})
	return &authFixture{referralFixture: rf, auth: authService}
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected user ID to be set")
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password must not be stored in plaintext")
	}
}

func TestRegister_WithReferralCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	referrer, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("register referrer: %v", err)
	}
	code, err := f.referral.CreateCode(ctx, referrer)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	recruit, err := f.auth.Register(ctx, "bob", "bob@example.com", "password123", code.Code)
	if err != nil {
		t.Fatalf("register with code: %v", err)
	}

	referrals, err := f.referral.ListReferrals(ctx, referrer.ID)
	if err != nil {
		t.Fatalf("list referrals: %v", err)
	}
	if len(referrals) != 1 {
		t.Fatalf("expected exactly one referral, got %d", len(referrals))
	}
	if referrals[0].Username != recruit.Username || referrals[0].Email != recruit.Email {
		t.Fatalf("unexpected referral %+v", referrals[0])
	}
}

func TestRegister_ExpiredCodeFailsClosed(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	referrer, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("register referrer: %v", err)
	}
	code, err := f.referral.CreateCode(ctx, referrer)
	if err != nil {
		t.Fatalf("create code: %v", err)
	}

	f.clock.Advance(8 * 24 * time.Hour)

	_, err = f.auth.Register(ctx, "bob", "bob@example.com", "password123", code.Code)
	assertDomainCode(t, err, "CODE_EXPIRED")

	// the whole registration is rejected: no account was created
	if _, err := f.users.GetByUsername(ctx, "bob"); err == nil {
		t.Fatal("expected no user row for failed registration")
	}
}

func TestRegister_UnknownCodeFailsClosed(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "bob", "bob@example.com", "password123", "NOSUCHCODE1234567890")
	assertDomainCode(t, err, "NOT_FOUND")

	if _, err := f.users.GetByUsername(ctx, "bob"); err == nil {
		t.Fatal("expected no user row for failed registration")
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.auth.Register(ctx, "alice", "other@example.com", "password123", "")
	assertDomainCode(t, err, "VALIDATION_FAILED")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := f.auth.Register(ctx, "alice2", "alice@example.com", "password123", "")
	assertDomainCode(t, err, "VALIDATION_FAILED")
}

func TestRegister_PasswordPolicy(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, "alice", "alice@example.com", "short", "")
	assertDomainCode(t, err, "VALIDATION_FAILED")

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	_, err = f.auth.Register(ctx, "alice", "alice@example.com", string(long), "")
	assertDomainCode(t, err, "VALIDATION_FAILED")
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Register(context.Background(), "alice", "not-an-email", "password123", "")
	assertDomainCode(t, err, "VALIDATION_FAILED")
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := f.auth.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("expected both tokens to be issued")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := f.auth.Login(ctx, "alice", "wrong-password")
	assertDomainCode(t, err, "UNAUTHORIZED")
}

func TestLogin_UnknownUser(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.auth.Login(context.Background(), "ghost", "password123")
	assertDomainCode(t, err, "UNAUTHORIZED")
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	pair, err := f.auth.Login(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	renewed, err := f.auth.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renewed.Access == "" || renewed.Refresh == "" {
		t.Fatal("expected a fresh token pair")
	}

	// an access token is not a valid refresh grant
	_, err = f.auth.Refresh(ctx, pair.Access)
	assertDomainCode(t, err, "UNAUTHORIZED")
}
