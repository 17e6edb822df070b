package agreement

import (
	"github.com/smallbiznis/ledger/internal/agreement/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("agreement",
	fx.Provide(repository.Provide),
)
