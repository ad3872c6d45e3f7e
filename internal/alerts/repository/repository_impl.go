package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() alertdomain.Repository {
	return &repo{}
}

func (r *repo) InsertBatch(ctx context.Context, db *gorm.DB, alerts []alertdomain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&alerts).Error
}

func (r *repo) FindActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time) ([]alertdomain.Alert, error) {
	var alerts []alertdomain.Alert
	err := db.WithContext(ctx).
		Where("tenant_id = ? AND is_dismissed = ?", tenantID, false).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *repo) MarkRead(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).
		Model(&alertdomain.Alert{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_read", true)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) MarkDismissed(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).
		Model(&alertdomain.Alert{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("is_dismissed", true)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) DeleteExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&alertdomain.Alert{})
	return res.RowsAffected, res.Error
}

func (r *repo) CountGrouped(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]alertdomain.TypeSeverityCount, error) {
	var rows []alertdomain.TypeSeverityCount
	err := db.WithContext(ctx).
		Raw(`
			SELECT alert_type, severity, is_read, COUNT(*) AS count
			FROM alerts
			WHERE tenant_id = ? AND is_dismissed = ?
			GROUP BY alert_type, severity, is_read
		`, tenantID, false).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
