package revenue

import (
	"github.com/supportiq/insight/internal/revenue/repository"
	"github.com/supportiq/insight/internal/revenue/service"
	"go.uber.org/fx"
)

var Module = fx.Module("revenue.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewSyntheticGenerator),
	fx.Provide(service.New),
)
