package optimizer

import (
	"github.com/supportiq/insight/internal/optimizer/advisor"
	"github.com/supportiq/insight/internal/optimizer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("optimizer.service",
	advisor.Module,
	fx.Provide(service.New),
)
