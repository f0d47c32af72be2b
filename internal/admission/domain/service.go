package domain

import (
	"context"

	communitydomain "github.com/opentribe/membership/internal/community/domain"
	membershipdomain "github.com/opentribe/membership/internal/membership/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
)

// Policy runs the ordered admission gates over a signup attempt. The first
// failing gate decides the outcome; later gates never run.
type Policy interface {
	Evaluate(ctx context.Context, attempt *Attempt) (Decision, error)
}

// Factory turns an accepted attempt into persisted records. Admit must never
// be called with a rejected decision.
type Factory interface {
	Admit(ctx context.Context, attempt *Attempt, decision Decision) (*Result, error)
}

type Result struct {
	Person     *persondomain.Person
	Membership *membershipdomain.CommunityMembership
	Redirect   Redirect
}

// DeriveStatus maps the community configuration to the membership status the
// new member starts with. It is computed once at admission.
func DeriveStatus(community *communitydomain.Community) membershipdomain.Status {
	if community == nil {
		return membershipdomain.StatusAccepted
	}
	if community.EmailConfirmationRequired {
		return membershipdomain.StatusPendingEmailConfirmation
	}
	if community.RequiresOrganizationMembership {
		return membershipdomain.StatusPendingOrganizationMembership
	}
	return membershipdomain.StatusAccepted
}

// RedirectFor names where the caller should send the person after admission.
func RedirectFor(community *communitydomain.Community, status membershipdomain.Status) Redirect {
	if community == nil {
		return RedirectNewTenant
	}
	switch status {
	case membershipdomain.StatusPendingEmailConfirmation:
		return RedirectConfirmationPending
	case membershipdomain.StatusPendingOrganizationMembership:
		return RedirectOrganizationMembership
	default:
		return RedirectWelcome
	}
}
