package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, person *Person) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Person, error)
	Update(ctx context.Context, db *gorm.DB, person *Person) error
	UpdateColumns(ctx context.Context, db *gorm.DB, id snowflake.ID, values map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	UsernameExists(ctx context.Context, db *gorm.DB, username string) (bool, error)
	// EmailInUse reports whether address is held as a primary or historical
	// email by anyone other than exclude (pass 0 to match everyone).
	EmailInUse(ctx context.Context, db *gorm.DB, address string, exclude snowflake.ID) (bool, error)

	FindAdditionalEmail(ctx context.Context, db *gorm.DB, address string) (*Email, error)
	InsertAdditionalEmail(ctx context.Context, db *gorm.DB, email *Email) error

	FindLocation(ctx context.Context, db *gorm.DB, personID snowflake.ID) (*Location, error)
	DeleteLocation(ctx context.Context, db *gorm.DB, personID snowflake.ID) error
	UpsertLocation(ctx context.Context, db *gorm.DB, location *Location) error
}
