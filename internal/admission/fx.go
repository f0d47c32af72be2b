package admission

import (
	"github.com/opentribe/membership/internal/admission/service"
	"go.uber.org/fx"
)

var Module = fx.Module("admission.service",
	fx.Provide(
		service.NewPolicy,
		service.NewFactory,
	),
)
