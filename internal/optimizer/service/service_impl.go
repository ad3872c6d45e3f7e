package service

import (
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/optimizer/advisor"
	optimizerdomain "github.com/supportiq/insight/internal/optimizer/domain"
	revenuedomain "github.com/supportiq/insight/internal/revenue/domain"
	tierdomain "github.com/supportiq/insight/internal/tier/domain"
	usagedomain "github.com/supportiq/insight/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Tracker    usagedomain.Tracker
	TierSvc    tierdomain.Service
	RevenueSvc revenuedomain.Service
	Advisor    advisor.Advisor
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	tracker    usagedomain.Tracker
	tierSvc    tierdomain.Service
	revenueSvc revenuedomain.Service
	advisor    advisor.Advisor
}

func New(p Params) optimizerdomain.Service {
	return &Service{
		log:        p.Log.Named("optimizer.service"),
		clock:      p.Clock,
		tracker:    p.Tracker,
		tierSvc:    p.TierSvc,
		revenueSvc: p.RevenueSvc,
		advisor:    p.Advisor,
	}
}
