package repository

import (
	"context"
	"errors"

	"archon-backend/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const profileColumns = `id, email, full_name, avatar_url, subscription_tier,
	stripe_customer_id, stripe_subscription_id, subscription_status,
	trial_ends_at, created_at, updated_at`

type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

func (r *PostgresProfileRepository) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.pool.QueryRow(ctx, `select `+profileColumns+` from profiles where id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *PostgresProfileRepository) CreateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	if p == nil {
		return nil, errors.New("nil profile")
	}
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}

	row := r.pool.QueryRow(ctx, `
		insert into profiles(
			id, email, full_name, avatar_url, subscription_tier,
			stripe_customer_id, stripe_subscription_id, subscription_status, trial_ends_at
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		returning `+profileColumns,
		id,
		p.Email,
		nullableText(p.FullName),
		nullableText(p.AvatarURL),
		string(p.SubscriptionTier),
		nullableText(p.StripeCustomerID),
		nullableText(p.StripeSubscriptionID),
		string(p.SubscriptionStatus),
		nullableTime(p.TrialEndsAt),
	)
	return scanProfile(row)
}

func (r *PostgresProfileRepository) UpdateProfile(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	cols, vals := u.Columns()
	if len(cols) == 0 {
		return r.GetProfile(ctx, id)
	}

	args := append([]any{id}, vals...)
	row := r.pool.QueryRow(ctx,
		`update profiles set `+setClause(cols, 2, true)+` where id = $1 returning `+profileColumns,
		args...)
	p, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func scanProfile(s scanner) (*domain.Profile, error) {
	var p domain.Profile
	var fullName, avatarURL, customerID, subscriptionID pgtype.Text
	var trialEndsAt pgtype.Timestamptz

	if err := s.Scan(
		&p.ID,
		&p.Email,
		&fullName,
		&avatarURL,
		&p.SubscriptionTier,
		&customerID,
		&subscriptionID,
		&p.SubscriptionStatus,
		&trialEndsAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.FullName = textPtr(fullName)
	p.AvatarURL = textPtr(avatarURL)
	p.StripeCustomerID = textPtr(customerID)
	p.StripeSubscriptionID = textPtr(subscriptionID)
	p.TrialEndsAt = timePtr(trialEndsAt)
	return &p, nil
}

// compile-time check
var _ domain.ProfileRepository = (*PostgresProfileRepository)(nil)
