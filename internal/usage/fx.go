package usage

import (
	"github.com/supportiq/insight/internal/usage/repository"
	"github.com/supportiq/insight/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
