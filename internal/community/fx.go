package community

import (
	"github.com/opentribe/membership/internal/community/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("community.service",
	fx.Provide(repository.Provide),
)
