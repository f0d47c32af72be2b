package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/community/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, community *domain.Community) error {
	return db.WithContext(ctx).Create(community).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Community, error) {
	var community domain.Community
	err := db.WithContext(ctx).First(&community, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *repo) ListRestricted(ctx context.Context, db *gorm.DB) ([]*domain.Community, error) {
	var communities []*domain.Community
	err := db.WithContext(ctx).
		Where("allowed_email_patterns IS NOT NULL AND allowed_email_patterns != ? AND allowed_email_patterns != ?", "", "[]").
		Find(&communities).Error
	if err != nil {
		return nil, err
	}
	return communities, nil
}
