package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Person is a platform-wide identity record. Usernames and primary email
// addresses are unique across the whole process, not per community.
type Person struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	Username           string            `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email              string            `gorm:"type:text;not null;uniqueIndex" json:"email"`
	GivenName          string            `gorm:"column:given_name" json:"given_name,omitempty"`
	FamilyName         string            `gorm:"column:family_name" json:"family_name,omitempty"`
	PasswordHash       string            `gorm:"column:password_hash;type:text" json:"-"`
	Locale             string            `gorm:"column:locale" json:"locale"`
	TestGroupNumber    int               `gorm:"column:test_group_number" json:"test_group_number"`
	ConfirmedAt        *time.Time        `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	ConfirmationSentAt *time.Time        `gorm:"column:confirmation_sent_at" json:"-"`
	Active             bool              `gorm:"column:active;not null;default:true" json:"active"`
	IsOrganization     bool              `gorm:"column:is_organization" json:"is_organization"`
	Preferences        datatypes.JSONMap `gorm:"column:preferences;type:jsonb;not null;default:'{}'" json:"preferences,omitempty"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Person) TableName() string { return "persons" }

// Confirmed reports whether the primary email address has been confirmed.
func (p *Person) Confirmed() bool {
	return p != nil && p.ConfirmedAt != nil
}

// GivenNameOrUsername is the display name used in notices.
func (p *Person) GivenNameOrUsername() string {
	if p.GivenName != "" {
		return p.GivenName
	}
	return p.Username
}

// Email is a historical confirmed address kept so that a once-confirmed
// address cannot be reused in an email-restricted community.
type Email struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	PersonID    snowflake.ID `gorm:"column:person_id;not null;index" json:"person_id"`
	Address     string       `gorm:"type:text;not null;uniqueIndex" json:"address"`
	ConfirmedAt *time.Time   `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Email) TableName() string { return "emails" }

// Location is an optional street address attached to a profile.
type Location struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	PersonID  snowflake.ID `gorm:"column:person_id;not null;uniqueIndex" json:"person_id"`
	Address   string       `gorm:"column:address" json:"address"`
	Latitude  float64      `gorm:"column:latitude" json:"latitude"`
	Longitude float64      `gorm:"column:longitude" json:"longitude"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Location) TableName() string { return "locations" }

var (
	ErrNotFound      = errors.New("person_not_found")
	ErrUsernameTaken = errors.New("username_taken")
	ErrEmailTaken    = errors.New("email_taken")
)
