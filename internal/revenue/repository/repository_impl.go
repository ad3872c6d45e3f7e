package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() revenuedomain.Repository {
	return &repo{}
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, analytics *revenuedomain.RevenueAnalytics) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"},
			{Name: "period_start"},
			{Name: "period_end"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"mrr",
			"arr",
			"new_customers",
			"churned_customers",
			"upgraded_customers",
			"downgraded_customers",
			"total_customers",
			"churn_rate",
			"ltv",
			"cac",
			"arpu",
			"updated_at",
		}),
	}).Create(analytics).Error
}

func (r *repo) FindPeriod(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, periodStart, periodEnd time.Time) (*revenuedomain.RevenueAnalytics, error) {
	var row revenuedomain.RevenueAnalytics
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND period_start = ? AND period_end = ?", tenantID, periodStart, periodEnd).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repo) FindLatestBefore(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, before time.Time) (*revenuedomain.RevenueAnalytics, error) {
	var row revenuedomain.RevenueAnalytics
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND period_start < ?", tenantID, before).
		Order("period_start DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *repo) Range(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, start, end time.Time) ([]revenuedomain.RevenueAnalytics, error) {
	var rows []revenuedomain.RevenueAnalytics
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND period_start >= ? AND period_start <= ?", tenantID, start, end).
		Order("period_start ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
