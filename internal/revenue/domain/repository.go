package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Upsert(ctx context.Context, db *gorm.DB, analytics *RevenueAnalytics) error
	FindPeriod(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodStart, periodEnd time.Time) (*RevenueAnalytics, error)
	FindLatestBefore(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, before time.Time) (*RevenueAnalytics, error)
	Range(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) ([]RevenueAnalytics, error)
}
