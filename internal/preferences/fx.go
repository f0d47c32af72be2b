package preferences

import "go.uber.org/fx"

var Module = fx.Module("preferences",
	fx.Provide(New),
)
