package alerts

import (
	"github.com/supportiq/insight/internal/alerts/repository"
	"github.com/supportiq/insight/internal/alerts/service"
	"go.uber.org/fx"
)

var Module = fx.Module("alerts.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
