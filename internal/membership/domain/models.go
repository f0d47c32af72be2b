package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Status of a community membership. It is derived once at admission from the
// community configuration and never silently re-derived.
type Status string

const (
	StatusAccepted                      Status = "accepted"
	StatusPendingEmailConfirmation      Status = "pending_email_confirmation"
	StatusPendingOrganizationMembership Status = "pending_organization_membership"
)

// CommunityMembership links a Person to a Community. The first membership
// ever recorded for a community is the admin; at most one membership per
// community may hold admin-by-default, enforced by a partial unique index.
type CommunityMembership struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	PersonID     snowflake.ID  `gorm:"column:person_id;not null;uniqueIndex:idx_membership_person_community" json:"person_id"`
	CommunityID  snowflake.ID  `gorm:"column:community_id;not null;uniqueIndex:idx_membership_person_community" json:"community_id"`
	Status       Status        `gorm:"column:status;not null" json:"status"`
	Admin        bool          `gorm:"column:admin;not null" json:"admin"`
	Consent      string        `gorm:"column:consent" json:"consent"`
	InvitationID *snowflake.ID `gorm:"column:invitation_id" json:"invitation_id,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CommunityMembership) TableName() string { return "community_memberships" }

var (
	ErrNotFound = errors.New("membership_not_found")
	// ErrAlreadyMember is returned when a person already holds a membership
	// in the community.
	ErrAlreadyMember = errors.New("already_member")
)
