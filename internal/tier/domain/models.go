// Package domain contains persistence models for subscription tiers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// SubscriptionTier is a tenant-scoped pricing tier. Tier configuration is
// owned by the surrounding application; the analytics engine reads tiers as
// pricing input and only exposes enough write surface to administer them.
type SubscriptionTier struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID      snowflake.ID      `gorm:"not null;index" json:"tenant_id"`
	Name          string            `gorm:"type:text;not null" json:"name"`
	Level         int               `gorm:"not null" json:"level"`
	MonthlyPrice  decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"monthly_price"`
	AnnualPrice   decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"annual_price"`
	APICallLimit  *int64            `gorm:"" json:"api_call_limit,omitempty"` // nil = unlimited
	FeatureLimits datatypes.JSONMap `gorm:"type:jsonb" json:"feature_limits,omitempty"`
	Active        bool              `gorm:"not null;default:true" json:"active"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (SubscriptionTier) TableName() string { return "subscription_tiers" }
