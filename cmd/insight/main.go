package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/supportiq/insight/internal/clock"
	"github.com/supportiq/insight/internal/config"
	"github.com/supportiq/insight/internal/metrics"
	"github.com/supportiq/insight/internal/migration"
	"github.com/supportiq/insight/internal/scheduler"
	"github.com/supportiq/insight/internal/server"
	"github.com/supportiq/insight/pkg/db"
	"github.com/supportiq/insight/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
