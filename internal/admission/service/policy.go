package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentribe/membership/internal/admission/domain"
	"github.com/opentribe/membership/internal/alerting"
	"github.com/opentribe/membership/internal/captcha"
	"github.com/opentribe/membership/internal/config"
	invitationdomain "github.com/opentribe/membership/internal/invitation/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type PolicyParams struct {
	fx.In

	Log          *zap.Logger
	Config       config.Config
	Invites      invitationdomain.Gate
	Availability persondomain.AvailabilityService
	Captcha      captcha.Verifier
	Notifier     alerting.Notifier
}

type policy struct {
	log          *zap.Logger
	invites      invitationdomain.Gate
	availability persondomain.AvailabilityService
	captcha      captcha.Verifier
	notifier     alerting.Notifier
	useCaptcha   bool
}

func NewPolicy(p PolicyParams) domain.Policy {
	return &policy{
		log:          p.Log.Named("admission.policy"),
		invites:      p.Invites,
		availability: p.Availability,
		captcha:      p.Captcha,
		notifier:     p.Notifier,
		useCaptcha:   p.Config.UseRecaptcha,
	}
}

// gate returns a non-nil decision to stop evaluation.
type gate func(ctx context.Context, attempt *domain.Attempt) (*domain.Decision, error)

func (s *policy) Evaluate(ctx context.Context, attempt *domain.Attempt) (domain.Decision, error) {
	gates := []gate{
		s.honeypotGate,
		s.invitationGate,
		s.emailUniquenessGate,
		s.emailAllowListGate,
		s.captchaGate,
	}

	accepted := domain.Decision{
		Accepted: true,
		Status:   domain.DeriveStatus(attempt.Community),
	}
	for _, g := range gates {
		decision, err := g(ctx, attempt)
		if err != nil {
			return domain.Decision{}, err
		}
		if decision == nil {
			continue
		}
		if !decision.Accepted {
			s.log.Info("signup rejected",
				zap.String("reason", string(decision.Reason)),
				zap.String("email", attempt.Person.Email),
			)
			return *decision, nil
		}
		// The invitation gate accepts with a resolved invitation attached.
		accepted.Invitation = decision.Invitation
	}
	return accepted, nil
}

// honeypotGate rejects any attempt that filled the decoy form field. Bots are
// told nothing; operators are told everything.
func (s *policy) honeypotGate(ctx context.Context, attempt *domain.Attempt) (*domain.Decision, error) {
	if strings.TrimSpace(attempt.Honeypot) == "" {
		return nil, nil
	}
	s.notifier.NotifyOperators(ctx,
		fmt.Sprintf("honeypot field filled by %q from %s", attempt.Person.Email, attempt.RemoteIP),
		alerting.CategoryHoneypot)
	decision := domain.Rejected(domain.ReasonSpam)
	return &decision, nil
}

// invitationGate runs when the community is invite-only or a code was
// submitted anyway. An unusable code clears the session-cached copy so a
// stale code cannot poison later attempts.
func (s *policy) invitationGate(ctx context.Context, attempt *domain.Attempt) (*domain.Decision, error) {
	required := attempt.Community != nil && attempt.Community.JoinWithInviteOnly
	code := strings.TrimSpace(attempt.InvitationCode)
	if !required && code == "" {
		return nil, nil
	}

	usable, err := s.invites.CodeUsable(ctx, code, attempt.Community)
	if err != nil {
		return nil, err
	}
	if !usable {
		if attempt.Session != nil {
			attempt.Session.InvitationCode = ""
		}
		s.notifier.NotifyOperators(ctx,
			fmt.Sprintf("invitation code %q rejected for %q", code, attempt.Person.Email),
			alerting.CategoryInvitationCode)
		decision := domain.Rejected(domain.ReasonInvalidInvite)
		return &decision, nil
	}

	invitation, err := s.invites.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	return &domain.Decision{Accepted: true, Invitation: invitation}, nil
}

func (s *policy) emailUniquenessGate(ctx context.Context, attempt *domain.Attempt) (*domain.Decision, error) {
	available, err := s.availability.EmailAvailableFor(ctx, 0, attempt.Person.Email)
	if err != nil {
		return nil, err
	}
	if available {
		return nil, nil
	}
	decision := domain.Rejected(domain.ReasonEmailTaken)
	return &decision, nil
}

func (s *policy) emailAllowListGate(ctx context.Context, attempt *domain.Attempt) (*domain.Decision, error) {
	if attempt.Community == nil || attempt.Community.EmailAllowed(attempt.Person.Email) {
		return nil, nil
	}
	decision := domain.Rejected(domain.ReasonEmailNotAllowed)
	return &decision, nil
}

// captchaGate verifies the submitted proof unless the session already proves
// the same pair. The verification API rejects replays, so a form resubmission
// after a validation error must not re-verify.
func (s *policy) captchaGate(ctx context.Context, attempt *domain.Attempt) (*domain.Decision, error) {
	if !s.useCaptcha || attempt.Community == nil || !attempt.Community.UseCaptcha {
		return nil, nil
	}

	token := attempt.CaptchaProof.Token()
	if attempt.Session != nil && attempt.Session.LastAcceptedCaptcha != "" &&
		attempt.Session.LastAcceptedCaptcha == token {
		return nil, nil
	}

	ok, err := s.captcha.Verify(ctx, attempt.RemoteIP, attempt.CaptchaProof)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.notifier.NotifyOperators(ctx,
			fmt.Sprintf("captcha failed for %q from %s", attempt.Person.Email, attempt.RemoteIP),
			alerting.CategoryCaptcha)
		decision := domain.Rejected(domain.ReasonCaptcha)
		return &decision, nil
	}
	if attempt.Session != nil {
		attempt.Session.LastAcceptedCaptcha = token
	}
	return nil, nil
}
