package migration

import (
	alertdomain "github.com/supportiq/insight/internal/alerts/domain"
	"github.com/supportiq/insight/internal/config"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	"github.com/supportiq/insight/internal/seed"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql/sqlite are dev and test targets; the versioned SQL is
			// written for postgres.
			err := conn.AutoMigrate(
				&usagedomain.UsageEvent{},
				&usagedomain.UsageAggregation{},
				&tierdomain.SubscriptionTier{},
				&revenuedomain.RevenueAnalytics{},
				&alertdomain.Alert{},
			)
			if err != nil {
				return err
			}
		}

		if cfg.DefaultTenantID != 0 {
			return seed.EnsureDefaultTiers(conn, cfg.DefaultTenantID)
		}
		return nil
	}),
)
