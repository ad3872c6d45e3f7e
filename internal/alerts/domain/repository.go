package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TypeSeverityCount is a grouped count row for the stats query.
type TypeSeverityCount struct {
	AlertType string `gorm:"column:alert_type"`
	Severity  string `gorm:"column:severity"`
	IsRead    bool   `gorm:"column:is_read"`
	Count     int    `gorm:"column:count"`
}

type Repository interface {
	InsertBatch(ctx context.Context, db *gorm.DB, alerts []Alert) error
	FindActive(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, now time.Time) ([]Alert, error)
	MarkRead(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error)
	MarkDismissed(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (bool, error)
	DeleteExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	CountGrouped(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) ([]TypeSeverityCount, error)
}
