package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/membership/domain"
	"github.com/opentribe/membership/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertWithAdminPromotion(ctx context.Context, conn *gorm.DB, membership *domain.CommunityMembership) error {
	count, err := r.CountByCommunity(ctx, conn, membership.CommunityID)
	if err != nil {
		return err
	}
	membership.Admin = count == 0
	return r.insert(ctx, conn, membership)
}

// insert runs each create in a nested transaction so a duplicate-key loss
// rolls back to a savepoint. Postgres otherwise aborts the caller's
// transaction on the failed statement and the demoted retry could never run.
func (r *repo) insert(ctx context.Context, conn *gorm.DB, membership *domain.CommunityMembership) error {
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(membership).Error
	})
	if err == nil {
		return nil
	}

	if !db.IsDuplicateKeyErr(err) {
		return err
	}

	// A duplicate while claiming admin usually means another first-joiner
	// won the race on the one-admin index. If this person is not already a
	// member, retry as a regular membership.
	if membership.Admin {
		existing, findErr := r.FindByPersonAndCommunity(ctx, conn, membership.PersonID, membership.CommunityID)
		if findErr != nil {
			return findErr
		}
		if existing != nil {
			return domain.ErrAlreadyMember
		}
		membership.Admin = false
		retryErr := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(membership).Error
		})
		if retryErr != nil {
			if db.IsDuplicateKeyErr(retryErr) {
				return domain.ErrAlreadyMember
			}
			return retryErr
		}
		return nil
	}

	return domain.ErrAlreadyMember
}

func (r *repo) FindByPersonAndCommunity(ctx context.Context, conn *gorm.DB, personID, communityID snowflake.ID) (*domain.CommunityMembership, error) {
	var membership domain.CommunityMembership
	err := conn.WithContext(ctx).
		First(&membership, "person_id = ? AND community_id = ?", personID, communityID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *repo) CountByCommunity(ctx context.Context, conn *gorm.DB, communityID snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.CommunityMembership{}).
		Where("community_id = ?", communityID).
		Count(&count).Error
	return count, err
}
