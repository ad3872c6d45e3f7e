package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tierdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tier *tierdomain.SubscriptionTier) error {
	return db.WithContext(ctx).Create(tier).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, tier *tierdomain.SubscriptionTier) error {
	return db.WithContext(ctx).
		Model(&tierdomain.SubscriptionTier{}).
		Where("tenant_id = ? AND id = ?", tier.TenantID, tier.ID).
		Select("name", "level", "monthly_price", "annual_price", "api_call_limit", "feature_limits", "active", "updated_at").
		Updates(tier).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*tierdomain.SubscriptionTier, error) {
	var tier tierdomain.SubscriptionTier
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tier, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]tierdomain.SubscriptionTier, error) {
	var tiers []tierdomain.SubscriptionTier
	err := db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("level ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]tierdomain.SubscriptionTier, error) {
	var tiers []tierdomain.SubscriptionTier
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("level ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, err
	}
	return tiers, nil
}
