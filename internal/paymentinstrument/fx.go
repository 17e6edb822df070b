package paymentinstrument

import (
	"github.com/smallbiznis/ledger/internal/paymentinstrument/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("paymentinstrument",
	fx.Provide(repository.Provide),
)
