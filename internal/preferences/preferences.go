// Package preferences applies the default notification preference set to
// freshly admitted persons.
package preferences

import (
	"context"

	persondomain "github.com/opentribe/membership/internal/person/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service interface {
	ApplyDefaults(ctx context.Context, person *persondomain.Person) error
}

func defaultSet() datatypes.JSONMap {
	return datatypes.JSONMap{
		"email_about_new_messages":                true,
		"email_about_new_comments_to_own_listing": true,
		"email_when_conversation_accepted":        true,
		"email_when_conversation_rejected":        true,
		"email_about_new_received_testimonials":   true,
	}
}

type service struct {
	db   *gorm.DB
	repo persondomain.Repository
}

func New(db *gorm.DB, repo persondomain.Repository) Service {
	return &service{db: db, repo: repo}
}

func (s *service) ApplyDefaults(ctx context.Context, person *persondomain.Person) error {
	defaults := defaultSet()
	if person.Preferences == nil {
		person.Preferences = datatypes.JSONMap{}
	}
	for key, value := range defaults {
		if _, ok := person.Preferences[key]; !ok {
			person.Preferences[key] = value
		}
	}
	return s.repo.UpdateColumns(ctx, s.db, person.ID, map[string]any{
		"preferences": person.Preferences,
	})
}
