package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"gorm.io/gorm"
)

// Gate validates and redeems invitation codes.
type Gate interface {
	// CodeUsable reports whether code can join community. community may be
	// nil for the brand-new tenant path.
	CodeUsable(ctx context.Context, code string, community *communitydomain.Community) (bool, error)
	// Resolve looks a code up case-insensitively; ErrNotFound on miss.
	Resolve(ctx context.Context, code string) (*Invitation, error)
	// Redeem consumes one use. It must be called at most once per admitted
	// signup and never on a rejected attempt. ErrExhausted signals a lost
	// race for the final use.
	Redeem(ctx context.Context, db *gorm.DB, invitation *Invitation) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invitation *Invitation) error
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*Invitation, error)
	// DecrementUses atomically decrements uses_left with a zero floor and
	// reports whether a use was consumed.
	DecrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
