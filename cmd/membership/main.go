package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/logger"
	"github.com/opentribe/membership/internal/migration"
	"github.com/opentribe/membership/internal/observability"
	"github.com/opentribe/membership/internal/server"
	"github.com/opentribe/membership/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
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
