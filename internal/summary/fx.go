package summary

import (
	"github.com/smallbiznis/ledger/internal/summary/repository"
	"github.com/smallbiznis/ledger/internal/summary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("summary",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
