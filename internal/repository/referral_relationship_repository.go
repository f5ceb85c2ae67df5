package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/referral-service/internal/domain"
)

// ConstraintReferral is the unique index making a user a referral at most once.
const ConstraintReferral = "referral_relationships_referral_id_key"

// ReferralRelationshipRepository records referrer/referral bindings.
type ReferralRelationshipRepository interface {
	Create(ctx context.Context, rel *domain.ReferralRelationship) error
	ListByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error)
	WithTx(tx pgx.Tx) ReferralRelationshipRepository
}

type referralRelationshipRepository struct {
	db Querier
}

// NewReferralRelationshipRepository returns a Postgres-backed implementation.
func NewReferralRelationshipRepository(db Querier) ReferralRelationshipRepository {
	return &referralRelationshipRepository{db: db}
}

func (r *referralRelationshipRepository) WithTx(tx pgx.Tx) ReferralRelationshipRepository {
	return &referralRelationshipRepository{db: tx}
}

func (r *referralRelationshipRepository) Create(ctx context.Context, rel *domain.ReferralRelationship) error {
	const query = `
        INSERT INTO referral_relationships (referrer_id, referral_id)
        VALUES ($1, $2)
        RETURNING id, created_at`

	return r.db.QueryRow(ctx, query,
		rel.ReferrerID,
		rel.ReferralID,
	).Scan(&rel.ID, &rel.CreatedAt)
}

func (r *referralRelationshipRepository) ListByReferrer(ctx context.Context, referrerID string) ([]domain.Referral, error) {
	const query = `
        SELECT u.username, u.email
        FROM referral_relationships rr
        JOIN users u ON u.id = rr.referral_id
        WHERE rr.referrer_id = $1`

	rows, err := r.db.Query(ctx, query, referrerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	referrals := []domain.Referral{}
	for rows.Next() {
		var ref domain.Referral
		if err := rows.Scan(&ref.Username, &ref.Email); err != nil {
			return nil, err
		}
		referrals = append(referrals, ref)
	}
	return referrals, rows.Err()
}
