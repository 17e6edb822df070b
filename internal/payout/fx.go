package payout

import (
	"github.com/smallbiznis/ledger/internal/payout/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("payout",
	fx.Provide(repository.Provide),
)
