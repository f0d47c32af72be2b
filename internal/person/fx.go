package person

import (
	"github.com/opentribe/membership/internal/person/repository"
	"github.com/opentribe/membership/internal/person/service"
	"go.uber.org/fx"
)

var Module = fx.Module("person.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewAvailability),
	fx.Provide(service.NewAccount),
)
