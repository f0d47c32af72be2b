package captcha

import (
	"github.com/opentribe/membership/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("captcha",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Verifier {
	if !cfg.UseRecaptcha || cfg.RecaptchaSecret == "" {
		return AlwaysAccept{}
	}
	return NewRecaptcha(cfg.RecaptchaSecret)
}
