// Package alerting routes operator notifications for suspicious or
// inconsistent signup traffic (honeypot hits, client-side validation bypass).
package alerting

import (
	"context"
	"fmt"

	"github.com/opentribe/membership/internal/providers/slack"
	"go.uber.org/zap"
)

// Categories used by the admission workflow. The honeypot and the
// invitation-bypass paths both alert operators; attacker and client bug are
// not distinguished structurally.
const (
	CategoryHoneypot       = "honeypot"
	CategoryInvitationCode = "invitation_code_error"
	CategoryCaptcha        = "captcha_error"
)

type Notifier interface {
	NotifyOperators(ctx context.Context, message, category string)
}

type notifier struct {
	log       *zap.Logger
	slack     slack.Provider
	channelID string
}

func New(log *zap.Logger, provider slack.Provider, channelID string) Notifier {
	return &notifier{
		log:       log.Named("alerting"),
		slack:     provider,
		channelID: channelID,
	}
}

// NotifyOperators never fails the caller; alert delivery problems are logged
// and dropped.
func (n *notifier) NotifyOperators(ctx context.Context, message, category string) {
	n.log.Warn("operator alert",
		zap.String("category", category),
		zap.String("message", message),
	)

	if n.slack == nil {
		return
	}
	text := fmt.Sprintf("[%s] %s", category, message)
	if err := n.slack.PostMessage(ctx, n.channelID, text); err != nil {
		n.log.Warn("failed to post operator alert", zap.Error(err))
	}
}
