package membership

import (
	"github.com/opentribe/membership/internal/membership/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("membership.service",
	fx.Provide(repository.Provide),
)
