package domain

import (
	"context"
	"errors"
)

type CreateTierRequest struct {
	Name          string         `json:"name"`
	Level         int            `json:"level"`
	MonthlyPrice  string         `json:"monthly_price"`
	AnnualPrice   string         `json:"annual_price"`
	APICallLimit  *int64         `json:"api_call_limit"`
	FeatureLimits map[string]any `json:"feature_limits"`
	Active        *bool          `json:"active"`
}

type UpdateTierRequest struct {
	ID            string         `json:"id"`
	Name          *string        `json:"name"`
	Level         *int           `json:"level"`
	MonthlyPrice  *string        `json:"monthly_price"`
	AnnualPrice   *string        `json:"annual_price"`
	APICallLimit  *int64         `json:"api_call_limit"`
	FeatureLimits map[string]any `json:"feature_limits"`
	Active        *bool          `json:"active"`
}

type Service interface {
	Create(ctx context.Context, req CreateTierRequest) (*SubscriptionTier, error)
	Update(ctx context.Context, req UpdateTierRequest) (*SubscriptionTier, error)
	List(ctx context.Context) ([]SubscriptionTier, error)
	// ListActive returns active tiers ordered by level ascending, the order
	// the optimizer and detectors rely on.
	ListActive(ctx context.Context) ([]SubscriptionTier, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidID     = errors.New("invalid_tier_id")
	ErrInvalidName   = errors.New("invalid_tier_name")
	ErrInvalidPrice  = errors.New("invalid_tier_price")
	ErrNotFound      = errors.New("tier_not_found")
)
