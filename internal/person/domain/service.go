package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
)

// AvailabilityService answers signup-time availability questions.
type AvailabilityService interface {
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	// EmailAvailableFor treats owner's own primary address as available so
	// that update-in-place never conflicts with itself. Pass owner 0 for a
	// brand-new ownerless address.
	EmailAvailableFor(ctx context.Context, owner snowflake.ID, email string) (bool, error)
	// CommunitiesRestrictingEmail returns the communities whose allow-list
	// matches email, used to detect restricted-signup conflicts before
	// creating a brand-new tenant.
	CommunitiesRestrictingEmail(ctx context.Context, email string) ([]*communitydomain.Community, error)
	// AvailableUsernameBasedOn derives a free username from base by appending
	// a numeric suffix when taken.
	AvailableUsernameBasedOn(ctx context.Context, base string) (string, error)
}

// AccountService owns the active flag and self-deletion.
type AccountService interface {
	// SetActive toggles the active flag. Deactivation closes all the
	// person's open listings; reactivation does not reopen them.
	SetActive(ctx context.Context, id snowflake.ID, active bool) (*Person, error)
	Delete(ctx context.Context, id snowflake.ID) error
}
