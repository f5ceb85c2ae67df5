package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/referral-service/internal/domain"
)

// ConstraintReferralCode is the unique index on the code string.
const ConstraintReferralCode = "referral_codes_code_key"

// ErrActiveCodeExists reports that the owner already holds a non-expired code.
// Returned by the atomic insert when a concurrent (or prior) active row blocks
// the replacement.
var ErrActiveCodeExists = errors.New("user already has an active referral code")

// ReferralCodeRepository persists per-user referral codes.
type ReferralCodeRepository interface {
	// CreateOrReplaceExpired inserts a code for code.UserID, replacing an
	// existing row only if that row is expired. Returns ErrActiveCodeExists
	// when an active row is present; the unique constraint on user_id keeps
	// this race-free under concurrent creates.
	CreateOrReplaceExpired(ctx context.Context, code *domain.ReferralCode) error
	GetByUserID(ctx context.Context, userID string) (*domain.ReferralCode, error)
	GetByCode(ctx context.Context, code string) (*domain.ReferralCode, error)
	DeleteByUserID(ctx context.Context, userID string) error
}

type referralCodeRepository struct {
	db Querier
}

// NewReferralCodeRepository returns a Postgres-backed implementation.
func NewReferralCodeRepository(db Querier) ReferralCodeRepository {
	return &referralCodeRepository{db: db}
}

func (r *referralCodeRepository) CreateOrReplaceExpired(ctx context.Context, code *domain.ReferralCode) error {
	// The guarded upsert is the final arbiter: if the existing row is still
	// active the WHERE clause rejects the update and no row is returned.
	const query = `
        INSERT INTO referral_codes (user_id, code, expiration_date)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
            SET code = EXCLUDED.code,
                expiration_date = EXCLUDED.expiration_date,
                created_at = NOW()
            WHERE referral_codes.expiration_date < NOW()
        RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		code.UserID,
		code.Code,
		code.ExpirationDate,
	).Scan(&code.ID, &code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrActiveCodeExists
	}
	return err
}

func (r *referralCodeRepository) GetByUserID(ctx context.Context, userID string) (*domain.ReferralCode, error) {
	const query = `
        SELECT id, user_id, code, expiration_date, created_at
        FROM referral_codes WHERE user_id=$1`
	return r.scanCode(r.db.QueryRow(ctx, query, userID))
}

func (r *referralCodeRepository) GetByCode(ctx context.Context, codeStr string) (*domain.ReferralCode, error) {
	const query = `
        SELECT id, user_id, code, expiration_date, created_at
        FROM referral_codes WHERE code=$1`
	return r.scanCode(r.db.QueryRow(ctx, query, codeStr))
}

func (r *referralCodeRepository) DeleteByUserID(ctx context.Context, userID string) error {
	const query = `DELETE FROM referral_codes WHERE user_id=$1`

	cmd, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *referralCodeRepository) scanCode(row pgx.Row) (*domain.ReferralCode, error) {
	var code domain.ReferralCode
	if err := row.Scan(
		&code.ID,
		&code.UserID,
		&code.Code,
		&code.ExpirationDate,
		&code.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &code, nil
}
