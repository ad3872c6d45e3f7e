// Package domain contains persistence models for period revenue analytics.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RevenueAnalytics is a period-bounded snapshot of SaaS financial metrics,
// upserted per (tenant, period_start, period_end). The same key may be
// recomputed; superseded rows are never mutated otherwise.
type RevenueAnalytics struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	TenantID    snowflake.ID `gorm:"not null;uniqueIndex:uniq_revenue_period" json:"tenant_id"`
	PeriodStart time.Time    `gorm:"not null;uniqueIndex:uniq_revenue_period" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"not null;uniqueIndex:uniq_revenue_period" json:"period_end"`

	MRR decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"mrr"`
	ARR decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"arr"`

	NewCustomers        int `gorm:"not null;default:0" json:"new_customers"`
	ChurnedCustomers    int `gorm:"not null;default:0" json:"churned_customers"`
	UpgradedCustomers   int `gorm:"not null;default:0" json:"upgraded_customers"`
	DowngradedCustomers int `gorm:"not null;default:0" json:"downgraded_customers"`
	TotalCustomers      int `gorm:"not null;default:0" json:"total_customers"`

	ChurnRate decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"churn_rate"`
	LTV       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"ltv"`
	CAC       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"cac"`
	ARPU      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"arpu"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (RevenueAnalytics) TableName() string { return "revenue_analytics" }
