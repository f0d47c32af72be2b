package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, community *Community) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Community, error)
	// ListRestricted returns every community that carries an email allow-list.
	ListRestricted(ctx context.Context, db *gorm.DB) ([]*Community, error)
}
