package aggregation

import (
	"github.com/smallbiznis/pricewatch/internal/aggregation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("aggregation.service",
	fx.Provide(service.New),
)
