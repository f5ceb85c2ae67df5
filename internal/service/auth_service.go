package service

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/referral-service/internal/auth"
	"github.com/spec-kit/referral-service/internal/config"
	"github.com/spec-kit/referral-service/internal/domain"
	"github.com/spec-kit/referral-service/internal/events"
	"github.com/spec-kit/referral-service/internal/repository"
	apperrors "github.com/spec-kit/referral-service/pkg/util"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	referrals  *ReferralService
	transactor repository.Transactor
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Referrals  *ReferralService
	Transactor repository.Transactor
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		referrals:  deps.Referrals,
		transactor: deps.Transactor,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, cfg.Auth.RefreshTokenTTLDays),
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates a new account. When a referral code is supplied, the code
// is validated first and user creation plus relationship linking run in one
// transaction: an invalid or expired code fails the whole registration.
func (s *AuthService) Register(ctx context.Context, username, email, password, referralCode string) (*domain.User, error) {
	if err := validateRegistration(username, email, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperrors.NewValidationError("username already exists", map[string]any{"field": "username"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewValidationError("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var referrer *domain.User
	if referralCode != "" {
		var err error
		referrer, err = s.referrals.ValidateForRegistration(ctx, referralCode)
		if err != nil {
			return nil, err
		}
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	var rel *domain.ReferralRelationship

	err = s.transactor.InTx(ctx, func(users repository.UserRepository, relationships repository.ReferralRelationshipRepository) error {
		if err := users.Create(ctx, user); err != nil {
			// The unique indexes arbitrate duplicate-submission races the
			// pre-checks above cannot see.
			switch {
			case repository.IsUniqueViolation(err, repository.ConstraintUsername):
				return apperrors.NewValidationError("username already exists", map[string]any{"field": "username"})
			case repository.IsUniqueViolation(err, repository.ConstraintEmail):
				return apperrors.NewValidationError("email already registered", map[string]any{"field": "email"})
			}
			return err
		}
		if referrer == nil {
			return nil
		}
		rel = &domain.ReferralRelationship{
			ReferrerID: referrer.ID,
			ReferralID: user.ID,
		}
		if err := relationships.Create(ctx, rel); err != nil {
			if repository.IsUniqueViolation(err, repository.ConstraintReferral) {
				return apperrors.NewConflict("ALREADY_REFERRED", "user is already linked to a referrer")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:   events.EventUserRegistered,
		UserID: user.ID,
		Payload: events.UserRegisteredPayload{
			Username: user.Username,
			Email:    user.Email,
			Referred: referrer != nil,
		},
	})
	if rel != nil {
		s.publishEvent(ctx, events.Event{
			Type:   events.EventReferralLinked,
			UserID: user.ID,
			Payload: events.ReferralLinkedPayload{
				ReferrerID: rel.ReferrerID,
				ReferralID: rel.ReferralID,
			},
		})
	}
	return user, nil
}

// Login authenticates a username/password pair and issues a token pair. The
// same generic message covers unknown users and wrong passwords.
func (s *AuthService) Login(ctx context.Context, username, password string) (*auth.TokenPair, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid username or password")
	}
	return s.tokenMgr.GeneratePair(user.ID)
}

// Refresh exchanges a valid refresh token for a new pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokenMgr.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid refresh token")
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("user not found")
		}
		return nil, err
	}
	return s.tokenMgr.GeneratePair(user.ID)
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func validateRegistration(username, email, password string) error {
	if username == "" || len(username) > domain.MaxUsernameLength {
		return apperrors.NewValidationError("username must be 1-150 characters", map[string]any{"field": "username"})
	}
	if email == "" || len(email) > domain.MaxEmailLength {
		return apperrors.NewValidationError("email must be 1-254 characters", map[string]any{"field": "email"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperrors.NewValidationError("invalid email address", map[string]any{"field": "email"})
	}
	if len(password) < domain.MinPasswordLength || len(password) > domain.MaxPasswordLength {
		return apperrors.NewValidationError("password must be 8-128 characters", map[string]any{"field": "password"})
	}
	return nil
}
