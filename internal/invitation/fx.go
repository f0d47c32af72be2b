package invitation

import (
	"github.com/opentribe/membership/internal/invitation/repository"
	"github.com/opentribe/membership/internal/invitation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
