package projection

import (
	eventservice "github.com/smallbiznis/ledger/internal/event/service"
	"github.com/smallbiznis/ledger/internal/projection/service"
	summaryservice "github.com/smallbiznis/ledger/internal/summary/service"
	"go.uber.org/fx"
)

var Module = fx.Module("projection",
	fx.Provide(
		func(s *eventservice.Service) service.EventSource { return s },
		func(s *summaryservice.Service) service.SummaryProjector { return s },
	),
	fx.Provide(service.NewDispatcher),
)
