package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tier *SubscriptionTier) error
	Update(ctx context.Context, db *gorm.DB, tier *SubscriptionTier) error
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*SubscriptionTier, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]SubscriptionTier, error)
	ListActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]SubscriptionTier, error)
}
