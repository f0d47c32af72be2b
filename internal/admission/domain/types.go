package domain

import (
	"github.com/opentribe/membership/internal/captcha"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	invitationdomain "github.com/opentribe/membership/internal/invitation/domain"
	membershipdomain "github.com/opentribe/membership/internal/membership/domain"
	"github.com/opentribe/membership/internal/session"
)

// PersonAttributes are the submitted profile fields for a signup attempt.
// PasswordCredential is an opaque credential produced by the external
// identity subsystem; this core never sees raw passwords.
type PersonAttributes struct {
	Username           string
	Email              string
	GivenName          string
	FamilyName         string
	PasswordCredential string
}

// Attempt is the immutable context of one signup attempt. Session points at
// the caller's session state; gates may clear the cached invitation code or
// cache an accepted captcha proof there, and the caller persists it.
type Attempt struct {
	Community *communitydomain.Community
	Person    PersonAttributes
	// Honeypot is the decoy form field; any content marks bot traffic.
	Honeypot       string
	InvitationCode string
	CaptchaProof   captcha.Proof
	RemoteIP       string
	Host           string
	Locale         string
	Session        *session.State
}

// Reason tags a rejected attempt with the first failing gate.
type Reason string

const (
	ReasonSpam            Reason = "spam"
	ReasonInvalidInvite   Reason = "invalid_invitation"
	ReasonEmailTaken      Reason = "email_taken"
	ReasonEmailNotAllowed Reason = "email_not_allowed"
	ReasonCaptcha         Reason = "captcha_failed"
)

// Decision is the ephemeral outcome of gate evaluation; it is never
// persisted. Exactly one of Accepted or Reason is meaningful.
type Decision struct {
	Accepted   bool
	Reason     Reason
	Invitation *invitationdomain.Invitation
	// Status is the membership status derived once at acceptance.
	Status membershipdomain.Status
}

func Rejected(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Redirect names the post-signup destination the caller should send the new
// member to.
type Redirect string

const (
	RedirectNewTenant              Redirect = "new_tenant"
	RedirectOrganizationMembership Redirect = "organization_membership"
	RedirectConfirmationPending    Redirect = "confirmation_pending"
	RedirectWelcome                Redirect = "welcome"
)
