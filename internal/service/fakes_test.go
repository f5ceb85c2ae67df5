package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/referral-service/internal/domain"
	"github.com/spec-kit/referral-service/internal/repository"
	"github.com/spec-kit/referral-service/pkg/util"
)

// fakeClock lets tests advance time deterministically.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) WithTx(pgx.Tx) repository.UserRepository { return r }

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return uniqueViolation(repository.ConstraintUsername)
		}
		if existing.Email == user.Email {
			return uniqueViolation(repository.ConstraintEmail)
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findBy(func(u *domain.User) bool { return u.Email == email })
}

func (r *fakeUserRepo) findBy(match func(*domain.User) bool) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if match(user) {
			copied := *user
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// fakeCodeRepo is an in-memory repository.ReferralCodeRepository enforcing
// the same constraints as the schema: one row per user, unique code strings,
// replacement only of expired rows.
type fakeCodeRepo struct {
	mu    sync.Mutex
	codes map[string]*domain.ReferralCode // keyed by user ID
	now   func() time.Time
}

func newFakeCodeRepo(now func() time.Time) *fakeCodeRepo {
	return &fakeCodeRepo{codes: make(map[string]*domain.ReferralCode), now: now}
}

func (r *fakeCodeRepo) CreateOrReplaceExpired(_ context.Context, code *domain.ReferralCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.codes[code.UserID]; ok && !existing.IsExpired(r.now()) {
		return repository.ErrActiveCodeExists
	}
	for userID, existing := range r.codes {
		if userID != code.UserID && existing.Code == code.Code {
			return uniqueViolation(repository.ConstraintReferralCode)
		}
	}
	code.ID = uuid.NewString()
	code.CreatedAt = r.now()
	copied := *code
	r.codes[code.UserID] = &copied
	return nil
}

func (r *fakeCodeRepo) GetByUserID(_ context.Context, userID string) (*domain.ReferralCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if code, ok := r.codes[userID]; ok {
		copied := *code
		return &copied, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCodeRepo) GetByCode(_ context.Context, codeStr string) (*domain.ReferralCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.Code == codeStr {
			copied := *code
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeCodeRepo) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codes[userID]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.codes, userID)
	return nil
}

// collidingCodeRepo makes the first n inserts fail with a unique violation on
// the code string, as if the truncated code collided with an existing row.
type collidingCodeRepo struct {
	*fakeCodeRepo
	collisions int
}

func (r *collidingCodeRepo) CreateOrReplaceExpired(ctx context.Context, code *domain.ReferralCode) error {
	if r.collisions > 0 {
		r.collisions--
		return uniqueViolation(repository.ConstraintReferralCode)
	}
	return r.fakeCodeRepo.CreateOrReplaceExpired(ctx, code)
}

// fakeRelationshipRepo is an in-memory repository.ReferralRelationshipRepository.
type fakeRelationshipRepo struct {
	mu        sync.Mutex
	relations []domain.ReferralRelationship
	users     *fakeUserRepo
}

func newFakeRelationshipRepo(users *fakeUserRepo) *fakeRelationshipRepo {
	return &fakeRelationshipRepo{users: users}
}

func (r *fakeRelationshipRepo) WithTx(pgx.Tx) repository.ReferralRelationshipRepository { return r }

func (r *fakeRelationshipRepo) Create(_ context.Context, rel *domain.ReferralRelationship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.relations {
		if existing.ReferralID == rel.ReferralID {
			return uniqueViolation(repository.ConstraintReferral)
		}
	}
	rel.ID = uuid.NewString()
	rel.CreatedAt = time.Now()
	r.relations = append(r.relations, *rel)
	return nil
}

func (r *fakeRelationshipRepo) ListByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	referrals := []domain.Referral{}
	for _, rel := range r.relations {
		if rel.ReferrerID != referrerID {
			continue
		}
		user, err := r.users.GetByID(ctx, rel.ReferralID)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, domain.Referral{Username: user.Username, Email: user.Email})
	}
	return referrals, nil
}

// fakeTransactor runs the callback against the fakes directly.
type fakeTransactor struct {
	users         repository.UserRepository
	relationships repository.ReferralRelationshipRepository
}

func (t *fakeTransactor) InTx(_ context.Context, fn func(repository.UserRepository, repository.ReferralRelationshipRepository) error) error {
	return fn(t.users, t.relationships)
}

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var de *util.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if de.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, de.Code, de)
	}
}
