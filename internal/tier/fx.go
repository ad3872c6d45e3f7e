package tier

import (
	"github.com/supportiq/insight/internal/tier/repository"
	"github.com/supportiq/insight/internal/tier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tier.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
