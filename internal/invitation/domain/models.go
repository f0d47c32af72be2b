package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Invitation is a redeemable signup token. Codes are stored uppercase and
// matched case-insensitively. CommunityID 0 marks a global code; whether
// global codes are honoured is a deployment policy.
type Invitation struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Code        string       `gorm:"type:text;not null;uniqueIndex" json:"code"`
	CommunityID snowflake.ID `gorm:"column:community_id;index" json:"community_id,omitempty"`
	UsesLeft    int          `gorm:"column:uses_left;not null" json:"uses_left"`
	ExpiresAt   *time.Time   `gorm:"column:expires_at" json:"expires_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// Global reports whether the code is not scoped to a single community.
func (i *Invitation) Global() bool {
	return i.CommunityID == 0
}

func (i *Invitation) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

func (i *Invitation) Exhausted() bool {
	return i.UsesLeft <= 0
}

var (
	ErrNotFound = errors.New("invitation_not_found")
	// ErrExhausted is returned when a redeem loses the race for the last
	// remaining use.
	ErrExhausted = errors.New("invitation_exhausted")
)
