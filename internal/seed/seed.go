// Package seed bootstraps pricing data so a fresh install can exercise the
// analytics pipeline immediately.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	"gorm.io/gorm"
)

type defaultTier struct {
	Name         string
	Level        int
	MonthlyPrice string
	AnnualPrice  string
	APICallLimit *int64
}

func limit(n int64) *int64 { return &n }

var defaultTiers = []defaultTier{
	{Name: "Starter", Level: 1, MonthlyPrice: "29.00", AnnualPrice: "290.00", APICallLimit: limit(1000)},
	{Name: "Professional", Level: 2, MonthlyPrice: "79.00", AnnualPrice: "790.00", APICallLimit: limit(10000)},
	{Name: "Enterprise", Level: 3, MonthlyPrice: "199.00", AnnualPrice: "1990.00", APICallLimit: nil},
}

// EnsureDefaultTiers creates the standard tier set for the tenant if it has
// no tiers yet. Existing tiers are never modified.
func EnsureDefaultTiers(db *gorm.DB, tenantID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if tenantID == 0 {
		return errors.New("seed tenant id is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&tierdomain.SubscriptionTier{}).
			Where("tenant_id = ?", tenantID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, t := range defaultTiers {
			monthly, err := decimal.NewFromString(t.MonthlyPrice)
			if err != nil {
				return err
			}
			annual, err := decimal.NewFromString(t.AnnualPrice)
			if err != nil {
				return err
			}
			tier := tierdomain.SubscriptionTier{
				ID:           node.Generate(),
				TenantID:     snowflake.ID(tenantID),
				Name:         t.Name,
				Level:        t.Level,
				MonthlyPrice: monthly,
				AnnualPrice:  annual,
				APICallLimit: t.APICallLimit,
				Active:       true,
			}
			if err := tx.Create(&tier).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
