package rdfimport

import (
	"github.com/opentribe/membership/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rdfimport",
	fx.Provide(func(log *zap.Logger, cfg config.Config) Importer {
		return New(log, cfg.RDFFetchTimeout)
	}),
)
