package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/referral-service/internal/cache"
	"github.com/spec-kit/referral-service/internal/domain"
	"github.com/spec-kit/referral-service/internal/events"
	"github.com/spec-kit/referral-service/internal/observability"
	"github.com/spec-kit/referral-service/internal/repository"
	apperrors "github.com/spec-kit/referral-service/pkg/util"
)

const (
	// Codes live for a fixed seven days; the cache TTL is independent.
	codeLifetime = 7 * 24 * time.Hour

	// Truncating the generated identifier to 20 chars makes collisions
	// possible; the unique constraint catches them and generation retries.
	maxCodeGenerationAttempts = 3
)

// ReferralService is the referral code engine: it creates, resolves, expires
// and deletes per-user codes and lists attributed referrals, keeping the
// email-keyed cache write-through with storage.
type ReferralService struct {
	users         repository.UserRepository
	codes         repository.ReferralCodeRepository
	relationships repository.ReferralRelationshipRepository
	cache         cache.ReferralCache
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

// ReferralDependencies bundles requirements for the referral service.
type ReferralDependencies struct {
	UserRepo         repository.UserRepository
	CodeRepo         repository.ReferralCodeRepository
	RelationshipRepo repository.ReferralRelationshipRepository
	Cache            cache.ReferralCache
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger

	// Now overrides the clock; defaults to time.Now.
	Now func() time.Time
}

// NewReferralService builds the service.
func NewReferralService(deps ReferralDependencies) *ReferralService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferralService{
		users:         deps.UserRepo,
		codes:         deps.CodeRepo,
		relationships: deps.RelationshipRepo,
		cache:         deps.Cache,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           now,
	}
}

// CreateCode issues a new code for the owner, replacing a previous expired
// one. Fails when a non-expired code already exists, including when a
// concurrent request wins the insert race.
func (s *ReferralService) CreateCode(ctx context.Context, owner *domain.User) (*domain.ReferralCode, error) {
	existing, err := s.codes.GetByUserID(ctx, owner.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil && !existing.IsExpired(s.now()) {
		return nil, apperrors.NewConflict("ACTIVE_CODE_EXISTS", "user already has an active referral code")
	}

	code := &domain.ReferralCode{
		UserID:         owner.ID,
		ExpirationDate: s.now().Add(codeLifetime),
	}
	for attempt := 0; ; attempt++ {
		code.Code = generateReferralCode()
		err = s.codes.CreateOrReplaceExpired(ctx, code)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrActiveCodeExists) {
			return nil, apperrors.NewConflict("ACTIVE_CODE_EXISTS", "user already has an active referral code")
		}
		if repository.IsUniqueViolation(err, repository.ConstraintReferralCode) && attempt < maxCodeGenerationAttempts-1 {
			continue
		}
		return nil, err
	}

	s.writeThrough(ctx, owner.Email, code)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventReferralCodeCreated,
		UserID: owner.ID,
		Payload: events.ReferralCodePayload{
			Code:           code.Code,
			ExpirationDate: code.ExpirationDate,
		},
	})
	return code, nil
}

// DeleteCode removes the owner's code row and its cache entry. The cache entry
// goes first so a reader cannot re-hit a snapshot of the row being deleted.
func (s *ReferralService) DeleteCode(ctx context.Context, owner *domain.User) error {
	if err := s.cache.Delete(ctx, owner.Email); err != nil {
		s.logger.Warn("referral cache delete failed", zap.String("email", owner.Email), zap.Error(err))
	}

	if err := s.codes.DeleteByUserID(ctx, owner.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewConflict("NO_CODE", "user has no active referral code")
		}
		return err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventReferralCodeDeleted,
		UserID: owner.ID,
	})
	return nil
}

// ResolveByReferrerEmail returns the code owned by the user with the given
// email. A cache hit answers directly; expiration is still checked against
// the snapshot, so an expired code is never served from cache. On a miss the
// authoritative row is read and re-cached before the expiration check.
func (s *ReferralService) ResolveByReferrerEmail(ctx context.Context, email string) (*domain.ReferralCode, error) {
	snap, err := s.cache.Get(ctx, email)
	if err != nil {
		s.logger.Warn("referral cache get failed", zap.String("email", email), zap.Error(err))
		snap = nil
	}
	s.metrics.RecordCacheLookup(snap != nil)
	if snap != nil {
		code := &domain.ReferralCode{Code: snap.Code, ExpirationDate: snap.ExpirationDate}
		if code.IsExpired(s.now()) {
			return nil, apperrors.NewExpired("referral code has expired")
		}
		return code, nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": email})
		}
		return nil, err
	}

	code, err := s.codes.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("referral code", nil)
		}
		return nil, err
	}

	s.writeThrough(ctx, email, code)

	if code.IsExpired(s.now()) {
		return nil, apperrors.NewExpired("referral code has expired")
	}
	return code, nil
}

// ValidateForRegistration resolves a supplied code string to its owner,
// rejecting unknown and expired codes.
func (s *ReferralService) ValidateForRegistration(ctx context.Context, codeStr string) (*domain.User, error) {
	code, err := s.codes.GetByCode(ctx, codeStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("referral code", nil)
		}
		return nil, err
	}
	if code.IsExpired(s.now()) {
		return nil, apperrors.NewExpired("referral code has expired")
	}
	return s.users.GetByID(ctx, code.UserID)
}

// ListReferrals returns the users recruited by the given referrer.
func (s *ReferralService) ListReferrals(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	if _, err := s.users.GetByID(ctx, referrerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": referrerID})
		}
		return nil, err
	}

	referrals, err := s.relationships.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	if len(referrals) == 0 {
		return nil, apperrors.NewNotFound("referrals", nil)
	}
	return referrals, nil
}

// writeThrough refreshes the cache entry; cache failures degrade to a log
// line, the store stays authoritative.
func (s *ReferralService) writeThrough(ctx context.Context, email string, code *domain.ReferralCode) {
	snap := cache.Snapshot{Code: code.Code, ExpirationDate: code.ExpirationDate}
	if err := s.cache.Set(ctx, email, snap); err != nil {
		s.logger.Warn("referral cache set failed", zap.String("email", email), zap.Error(err))
	}
}

func (s *ReferralService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateReferralCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[:domain.MaxReferralCodeLength]
}
