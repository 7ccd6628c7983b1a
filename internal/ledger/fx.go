package ledger

import (
	"github.com/smallbiznis/pricewatch/internal/ledger/lock"
	"github.com/smallbiznis/pricewatch/internal/ledger/repository"
	"github.com/smallbiznis/pricewatch/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(lock.Provide),
	fx.Provide(service.NewService),
)
