package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	AlertTypeUsageThreshold    = "usage_threshold"
	AlertTypeChurnRisk         = "churn_risk"
	AlertTypeUpsellOpportunity = "upsell_opportunity"
	AlertTypeTierOptimization  = "tier_optimization"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is the durable operator-facing output of the detection passes.
// Lifecycle: created by a detector, mutated only via mark-as-read and
// dismiss, removed by expiry cleanup or tenant purge.
type Alert struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"index:idx_alerts_tenant;not null" json:"tenant_id"`
	UserID    snowflake.ID      `gorm:"index" json:"user_id,omitempty"`
	AlertType string            `gorm:"type:varchar(32);not null" json:"alert_type"`
	Severity  string            `gorm:"type:varchar(16);not null" json:"severity"`
	Title     string            `gorm:"type:varchar(255);not null" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`

	IsRead      bool       `gorm:"not null;default:false" json:"is_read"`
	IsDismissed bool       `gorm:"not null;default:false" json:"is_dismissed"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func (Alert) TableName() string {
	return "alerts"
}
