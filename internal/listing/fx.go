package listing

import (
	"github.com/opentribe/membership/internal/listing/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("listing.service",
	fx.Provide(repository.Provide),
)
