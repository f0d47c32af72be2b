package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Listing is the minimal slice of marketplace content this service touches:
// deactivating an account closes the author's open listings.
type Listing struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AuthorID  snowflake.ID `gorm:"column:author_id;not null;index" json:"author_id"`
	Title     string       `gorm:"not null" json:"title"`
	Open      bool         `gorm:"column:open;not null;default:true" json:"open"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Listing) TableName() string { return "listings" }

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, listing *Listing) error
	ListByAuthor(ctx context.Context, db *gorm.DB, authorID snowflake.ID) ([]*Listing, error)
	// CloseAllByAuthor marks every open listing of authorID closed and
	// returns how many rows changed.
	CloseAllByAuthor(ctx context.Context, db *gorm.DB, authorID snowflake.ID) (int64, error)
}
