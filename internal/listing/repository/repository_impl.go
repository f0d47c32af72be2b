package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/listing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	return db.WithContext(ctx).Create(listing).Error
}

func (r *repo) ListByAuthor(ctx context.Context, db *gorm.DB, authorID snowflake.ID) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	err := db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at desc, id desc").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *repo) CloseAllByAuthor(ctx context.Context, db *gorm.DB, authorID snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("author_id = ? AND open = ?", authorID, true).
		Updates(map[string]any{"open": false, "updated_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
