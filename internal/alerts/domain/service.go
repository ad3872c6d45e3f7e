package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// AlertStats summarizes a tenant's non-dismissed alerts.
type AlertStats struct {
	Total      int            `json:"total"`
	Unread     int            `json:"unread"`
	ByType     map[string]int `json:"by_type"`
	BySeverity map[string]int `json:"by_severity"`
}

// Manager runs the detection passes and owns the alert lifecycle. Detector
// failures degrade to an empty batch for that detector; read-path failures
// collapse into empty results.
type Manager interface {
	// GenerateAlerts fans out the threshold, churn-risk and upsell
	// detectors concurrently and persists the combined batch. Returns the
	// number of alerts created.
	GenerateAlerts(ctx context.Context) int

	GetActiveAlerts(ctx context.Context) []Alert
	MarkAsRead(ctx context.Context, alertID snowflake.ID) bool
	Dismiss(ctx context.Context, alertID snowflake.ID) bool
	GetAlertStats(ctx context.Context) AlertStats

	// CleanupExpiredAlerts hard-deletes alerts whose expiry has passed,
	// across all tenants. Returns the number deleted.
	CleanupExpiredAlerts(ctx context.Context) int
}

var ErrInvalidTenant = errors.New("invalid_tenant")
