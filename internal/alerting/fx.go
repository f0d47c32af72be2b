package alerting

import (
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("alerting",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Notifier {
	var provider slack.Provider = &slack.NoOpProvider{}
	if cfg.SlackWebhookURL != "" {
		provider = slack.NewWebhook(cfg.SlackWebhookURL)
	}
	return New(log, provider, cfg.SlackChannelID)
}
