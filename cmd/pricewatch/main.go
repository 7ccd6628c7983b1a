package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricewatch/internal/aggregation"
	"github.com/smallbiznis/pricewatch/internal/alert"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/smallbiznis/pricewatch/internal/connector"
	"github.com/smallbiznis/pricewatch/internal/ledger"
	"github.com/smallbiznis/pricewatch/internal/migration"
	"github.com/smallbiznis/pricewatch/internal/observability"
	"github.com/smallbiznis/pricewatch/internal/observation"
	"github.com/smallbiznis/pricewatch/internal/savings"
	"github.com/smallbiznis/pricewatch/internal/scheduler"
	"github.com/smallbiznis/pricewatch/internal/server"
	"github.com/smallbiznis/pricewatch/internal/shoppinglist"
	"github.com/smallbiznis/pricewatch/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,

		// Functional Domains
		connector.Module,
		observation.Module,
		ledger.Module,
		aggregation.Module,
		alert.Module,
		savings.Module,
		shoppinglist.Module,

		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
