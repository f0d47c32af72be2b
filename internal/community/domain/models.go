package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentGatewayKind selects the payout provider configured for a community.
type PaymentGatewayKind string

const (
	GatewayNone     PaymentGatewayKind = ""
	GatewayMangopay PaymentGatewayKind = "mangopay"
	GatewayCheckout PaymentGatewayKind = "checkout"
)

// Community is a tenant scope with its own membership policy.
type Community struct {
	ID                        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                      string       `gorm:"not null" json:"name"`
	EmailConfirmationRequired bool         `gorm:"column:email_confirmation_required" json:"email_confirmation_required"`
	AllowedEmailPatterns      []string     `gorm:"column:allowed_email_patterns;serializer:json" json:"allowed_email_patterns,omitempty"`
	JoinWithInviteOnly        bool         `gorm:"column:join_with_invite_only" json:"join_with_invite_only"`
	UseCaptcha                bool         `gorm:"column:use_captcha" json:"use_captcha"`
	OnlyOrganizations         bool         `gorm:"column:only_organizations" json:"only_organizations"`
	// Deprecated path kept for existing tenants.
	RequiresOrganizationMembership bool               `gorm:"column:requires_organization_membership" json:"requires_organization_membership"`
	PaymentGateway                 PaymentGatewayKind `gorm:"column:payment_gateway" json:"payment_gateway,omitempty"`
	Consent                        string             `gorm:"column:consent" json:"consent"`
	CreatedAt                      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt                      time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Community) TableName() string { return "communities" }

// EmailRestricted reports whether the community limits signups to an
// allow-list of email patterns.
func (c *Community) EmailRestricted() bool {
	return c != nil && len(c.AllowedEmailPatterns) > 0
}

// CategoryEmailRestricted reports whether a new community of the given
// category binds members to an email domain. Company and university
// communities are domain-bound; other categories are open.
func CategoryEmailRestricted(category string) bool {
	switch category {
	case "company", "university":
		return true
	}
	return false
}

// EmailAllowed reports whether email matches the community allow-list. An
// empty allow-list accepts every address. A pattern starting with "@" matches
// as a suffix; any other pattern must equal the address domain.
func (c *Community) EmailAllowed(email string) bool {
	if !c.EmailRestricted() {
		return true
	}

	addr := strings.ToLower(strings.TrimSpace(email))
	_, domain, found := strings.Cut(addr, "@")
	if !found || domain == "" {
		return false
	}

	for _, pattern := range c.AllowedEmailPatterns {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "@") {
			if strings.HasSuffix(addr, p) {
				return true
			}
			continue
		}
		if domain == p {
			return true
		}
	}
	return false
}

var ErrNotFound = errors.New("community_not_found")
