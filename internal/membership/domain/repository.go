package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertWithAdminPromotion inserts the membership, granting admin iff no
	// membership exists yet for the community. Losing the first-member race
	// demotes the insert to a regular membership instead of producing two
	// admins.
	InsertWithAdminPromotion(ctx context.Context, db *gorm.DB, membership *CommunityMembership) error
	FindByPersonAndCommunity(ctx context.Context, db *gorm.DB, personID, communityID snowflake.ID) (*CommunityMembership, error)
	CountByCommunity(ctx context.Context, db *gorm.DB, communityID snowflake.ID) (int64, error)
}
