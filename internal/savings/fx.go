package savings

import (
	"github.com/smallbiznis/pricewatch/internal/savings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("savings.service",
	fx.Provide(service.New),
)
