package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/invitation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invitation *domain.Invitation) error {
	invitation.Code = strings.ToUpper(strings.TrimSpace(invitation.Code))
	return db.WithContext(ctx).Create(invitation).Error
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	err := db.WithContext(ctx).
		First(&invitation, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

// DecrementUses is a single conditional UPDATE so two concurrent redemptions
// can never over-spend the last remaining use.
func (r *repo) DecrementUses(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Invitation{}).
		Where("id = ? AND uses_left > 0", id).
		Updates(map[string]any{
			"uses_left":  gorm.Expr("uses_left - 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
