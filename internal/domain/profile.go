package domain

import "time"

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

func (t SubscriptionTier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	}
	return false
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionActive, SubscriptionInactive, SubscriptionCancelled, SubscriptionPastDue:
		return true
	}
	return false
}

// Profile is the account row created on signup and updated on billing events.
type Profile struct {
	ID                   string             `json:"id"`
	Email                string             `json:"email"`
	FullName             *string            `json:"full_name"`
	AvatarURL            *string            `json:"avatar_url"`
	SubscriptionTier     SubscriptionTier   `json:"subscription_tier"`
	StripeCustomerID     *string            `json:"stripe_customer_id"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt          *time.Time         `json:"trial_ends_at"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// Validate checks the fields a new profile must carry.
func (p *Profile) Validate() error {
	if p.Email == "" {
		return invalid("profile email is required")
	}
	if !p.SubscriptionTier.Valid() {
		return invalid("unknown subscription tier %q", p.SubscriptionTier)
	}
	if !p.SubscriptionStatus.Valid() {
		return invalid("unknown subscription status %q", p.SubscriptionStatus)
	}
	return nil
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FullName             *string             `json:"full_name"`
	AvatarURL            *string             `json:"avatar_url"`
	SubscriptionTier     *SubscriptionTier   `json:"subscription_tier"`
	StripeCustomerID     *string             `json:"stripe_customer_id"`
	StripeSubscriptionID *string             `json:"stripe_subscription_id"`
	SubscriptionStatus   *SubscriptionStatus `json:"subscription_status"`
	TrialEndsAt          *time.Time          `json:"trial_ends_at"`
}

func (u ProfileUpdate) Validate() error {
	if u.SubscriptionTier != nil && !u.SubscriptionTier.Valid() {
		return invalid("unknown subscription tier %q", *u.SubscriptionTier)
	}
	if u.SubscriptionStatus != nil && !u.SubscriptionStatus.Valid() {
		return invalid("unknown subscription status %q", *u.SubscriptionStatus)
	}
	return nil
}

// Apply copies the set fields onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = u.FullName
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
	if u.SubscriptionTier != nil {
		p.SubscriptionTier = *u.SubscriptionTier
	}
	if u.StripeCustomerID != nil {
		p.StripeCustomerID = u.StripeCustomerID
	}
	if u.StripeSubscriptionID != nil {
		p.StripeSubscriptionID = u.StripeSubscriptionID
	}
	if u.SubscriptionStatus != nil {
		p.SubscriptionStatus = *u.SubscriptionStatus
	}
	if u.TrialEndsAt != nil {
		p.TrialEndsAt = u.TrialEndsAt
	}
}

// Columns lists the set fields as column/value pairs in a stable order.
func (u ProfileUpdate) Columns() ([]string, []any) {
	var cols []string
	var vals []any
	add := func(col string, v any) {
		cols = append(cols, col)
		vals = append(vals, v)
	}
	if u.FullName != nil {
		add("full_name", *u.FullName)
	}
	if u.AvatarURL != nil {
		add("avatar_url", *u.AvatarURL)
	}
	if u.SubscriptionTier != nil {
		add("subscription_tier", string(*u.SubscriptionTier))
	}
	if u.StripeCustomerID != nil {
		add("stripe_customer_id", *u.StripeCustomerID)
	}
	if u.StripeSubscriptionID != nil {
		add("stripe_subscription_id", *u.StripeSubscriptionID)
	}
	if u.SubscriptionStatus != nil {
		add("subscription_status", string(*u.SubscriptionStatus))
	}
	if u.TrialEndsAt != nil {
		add("trial_ends_at", *u.TrialEndsAt)
	}
	return cols, vals
}
