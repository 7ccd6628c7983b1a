package observation

import "go.uber.org/fx"

var Module = fx.Module("observation.normalizer",
	fx.Provide(NewNormalizer),
)
