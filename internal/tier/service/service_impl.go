package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/supportiq/insight/internal/tenantctx"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  tierdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  tierdomain.Repository
}

func New(p Params) tierdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tier.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req tierdomain.CreateTierRequest) (*tierdomain.SubscriptionTier, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil, tierdomain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tierdomain.ErrInvalidName
	}

	monthly, err := parsePrice(req.MonthlyPrice)
	if err != nil {
		return nil, err
	}
	annual, err := parsePrice(req.AnnualPrice)
	if err != nil {
		return nil, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	tier := &tierdomain.SubscriptionTier{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		Name:         name,
		Level:        req.Level,
		MonthlyPrice: monthly,
		AnnualPrice:  annual,
		APICallLimit: req.APICallLimit,
		Active:       active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.FeatureLimits != nil {
		tier.FeatureLimits = datatypes.JSONMap(req.FeatureLimits)
	}

	if err := s.repo.Insert(ctx, s.db, tier); err != nil {
		return nil, err
	}

	return tier, nil
}

func (s *Service) Update(ctx context.Context, req tierdomain.UpdateTierRequest) (*tierdomain.SubscriptionTier, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil, tierdomain.ErrInvalidTenant
	}

	tierID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || tierID == 0 {
		return nil, tierdomain.ErrInvalidID
	}

	tier, err := s.repo.FindByID(ctx, s.db, tenantID, tierID)
	if err != nil {
		return nil, err
	}
	if tier == nil {
		return nil, tierdomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, tierdomain.ErrInvalidName
		}
		tier.Name = name
	}
	if req.Level != nil {
		tier.Level = *req.Level
	}
	if req.MonthlyPrice != nil {
		monthly, err := parsePrice(*req.MonthlyPrice)
		if err != nil {
			return nil, err
		}
		tier.MonthlyPrice = monthly
	}
	if req.AnnualPrice != nil {
		annual, err := parsePrice(*req.AnnualPrice)
		if err != nil {
			return nil, err
		}
		tier.AnnualPrice = annual
	}
	if req.APICallLimit != nil {
		tier.APICallLimit = req.APICallLimit
	}
	if req.FeatureLimits != nil {
		tier.FeatureLimits = datatypes.JSONMap(req.FeatureLimits)
	}
	if req.Active != nil {
		tier.Active = *req.Active
	}

	tier.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, tier); err != nil {
		return nil, err
	}

	return tier, nil
}

func (s *Service) List(ctx context.Context) ([]tierdomain.SubscriptionTier, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil, tierdomain.ErrInvalidTenant
	}
	return s.repo.List(ctx, s.db, tenantID)
}

func (s *Service) ListActive(ctx context.Context) ([]tierdomain.SubscriptionTier, error) {
	tenantID, ok := tenantctx.TenantIDFromContext(ctx)
	if !ok || tenantID == 0 {
		return nil, tierdomain.ErrInvalidTenant
	}
	return s.repo.ListActive(ctx, s.db, tenantID)
}

func parsePrice(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.Zero, tierdomain.ErrInvalidPrice
	}
	return value, nil
}
