package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/person/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, person *domain.Person) error {
	return db.WithContext(ctx).Create(person).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Person, error) {
	var person domain.Person
	err := db.WithContext(ctx).First(&person, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, person *domain.Person) error {
	return db.WithContext(ctx).Save(person).Error
}

func (r *repo) UpdateColumns(ctx context.Context, db *gorm.DB, id snowflake.ID, values map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Person{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Person{}, "id = ?", id).Error
}

func (r *repo) UsernameExists(ctx context.Context, db *gorm.DB, username string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Person{}).
		Where("lower(username) = lower(?)", username).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) EmailInUse(ctx context.Context, db *gorm.DB, address string, exclude snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Person{}).
		Where("lower(email) = lower(?)", address).
		Where("id != ?", exclude).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = db.WithContext(ctx).
		Model(&domain.Email{}).
		Where("lower(address) = lower(?)", address).
		Where("person_id != ?", exclude).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindAdditionalEmail(ctx context.Context, db *gorm.DB, address string) (*domain.Email, error) {
	var email domain.Email
	err := db.WithContext(ctx).First(&email, "lower(address) = lower(?)", address).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &email, nil
}

func (r *repo) InsertAdditionalEmail(ctx context.Context, db *gorm.DB, email *domain.Email) error {
	return db.WithContext(ctx).Create(email).Error
}

func (r *repo) FindLocation(ctx context.Context, db *gorm.DB, personID snowflake.ID) (*domain.Location, error) {
	var location domain.Location
	err := db.WithContext(ctx).First(&location, "person_id = ?", personID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repo) DeleteLocation(ctx context.Context, db *gorm.DB, personID snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Location{}, "person_id = ?", personID).Error
}

func (r *repo) UpsertLocation(ctx context.Context, db *gorm.DB, location *domain.Location) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "person_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"address", "latitude", "longitude"}),
		}).
		Create(location).Error
}
