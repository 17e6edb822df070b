package main

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledger/internal/agreement"
	"github.com/smallbiznis/ledger/internal/clock"
	"github.com/smallbiznis/ledger/internal/config"
	"github.com/smallbiznis/ledger/internal/event"
	"github.com/smallbiznis/ledger/internal/ingest"
	"github.com/smallbiznis/ledger/internal/metricspush"
	"github.com/smallbiznis/ledger/internal/migration"
	"github.com/smallbiznis/ledger/internal/observability"
	"github.com/smallbiznis/ledger/internal/paymentinstrument"
	"github.com/smallbiznis/ledger/internal/payout"
	"github.com/smallbiznis/ledger/internal/projection"
	"github.com/smallbiznis/ledger/internal/server"
	"github.com/smallbiznis/ledger/internal/summary"
	"github.com/smallbiznis/ledger/internal/transaction"
	"github.com/smallbiznis/ledger/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(NewSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		metricspush.Module,

		// Event store and projections
		event.Module,
		transaction.Module,
		agreement.Module,
		paymentinstrument.Module,
		payout.Module,
		summary.Module,
		projection.Module,

		// Transports
		ingest.Module,
		server.Module,
	)
	app.Run()
}

func NewSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.SnowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.SnowflakeNode, err)
	}
	return node, nil
}
