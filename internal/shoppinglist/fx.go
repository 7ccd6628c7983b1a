package shoppinglist

import (
	"github.com/smallbiznis/pricewatch/internal/shoppinglist/repository"
	"github.com/smallbiznis/pricewatch/internal/shoppinglist/service"
	"go.uber.org/fx"
)

var Module = fx.Module("shoppinglist.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
