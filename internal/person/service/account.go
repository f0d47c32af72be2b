package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/identity"
	"github.com/opentribe/membership/internal/jobs"
	listingdomain "github.com/opentribe/membership/internal/listing/domain"
	"github.com/opentribe/membership/internal/person/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AccountParams struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     domain.Repository
	Listings listingdomain.Repository
	Identity identity.Service
	Queue    jobs.Queue
}

type accountService struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	listings listingdomain.Repository
	identity identity.Service
	queue    jobs.Queue
}

func NewAccount(p AccountParams) domain.AccountService {
	return &accountService{
		db:       p.DB,
		log:      p.Log.Named("person.account"),
		repo:     p.Repo,
		listings: p.Listings,
		identity: p.Identity,
		queue:    p.Queue,
	}
}

func (s *accountService) SetActive(ctx context.Context, id snowflake.ID, active bool) (*domain.Person, error) {
	person, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateColumns(ctx, tx, id, map[string]any{"active": active}); err != nil {
			return err
		}

		// Only deactivation cascades. Reactivation leaves listings closed;
		// the member reopens them individually.
		if !active {
			closed, err := s.listings.CloseAllByAuthor(ctx, tx, id)
			if err != nil {
				return err
			}
			s.log.Info("closed listings on deactivation",
				zap.String("person_id", id.String()),
				zap.Int64("count", closed),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	person.Active = active
	return person, nil
}

func (s *accountService) Delete(ctx context.Context, id snowflake.ID) error {
	person, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return err
	}

	if err := s.identity.SignOut(ctx, person.ID); err != nil {
		s.log.Warn("sign out on delete failed", zap.Error(err))
	}

	if err := s.repo.Delete(ctx, s.db, person.ID); err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, jobs.KindAnalyticsEvent, datatypes.JSONMap{
		"category": "user",
		"action":   "deleted",
		"label":    "by user",
	}); err != nil {
		s.log.Warn("failed to enqueue analytics event", zap.Error(err))
	}
	return nil
}
