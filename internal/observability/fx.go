package observability

import (
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		NewTracerProvider,
		NewMetrics,
	),
	fx.Invoke(ensureTracerProvider),
)

func ensureTracerProvider(_ trace.TracerProvider) {}
