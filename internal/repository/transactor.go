package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Transactor runs user creation and referral linking in one transaction so a
// registration with an invalid link never leaves a half-created account.
type Transactor interface {
	InTx(ctx context.Context, fn func(users UserRepository, relationships ReferralRelationshipRepository) error) error
}

type pgxTransactor struct {
	pool          *pgxpool.Pool
	users         UserRepository
	relationships ReferralRelationshipRepository
}

// NewTransactor builds a pgx-backed Transactor.
func NewTransactor(pool *pgxpool.Pool, users UserRepository, relationships ReferralRelationshipRepository) Transactor {
	return &pgxTransactor{pool: pool, users: users, relationships: relationships}
}

func (t *pgxTransactor) InTx(ctx context.Context, fn func(UserRepository, ReferralRelationshipRepository) error) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(t.users.WithTx(tx), t.relationships.WithTx(tx))
	})
}
