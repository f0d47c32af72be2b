package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"github.com/opentribe/membership/internal/person/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type AvailabilityParams struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	Communities communitydomain.Repository
}

type availabilityService struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	communities communitydomain.Repository
}

func NewAvailability(p AvailabilityParams) domain.AvailabilityService {
	return &availabilityService{
		db:          p.DB,
		log:         p.Log.Named("person.availability"),
		repo:        p.Repo,
		communities: p.Communities,
	}
}

func (s *availabilityService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, nil
	}
	exists, err := s.repo.UsernameExists(ctx, s.db, username)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

func (s *availabilityService) EmailAvailableFor(ctx context.Context, owner snowflake.ID, email string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return false, nil
	}
	inUse, err := s.repo.EmailInUse(ctx, s.db, email, owner)
	if err != nil {
		return false, err
	}
	return !inUse, nil
}

func (s *availabilityService) CommunitiesRestrictingEmail(ctx context.Context, email string) ([]*communitydomain.Community, error) {
	restricted, err := s.communities.ListRestricted(ctx, s.db)
	if err != nil {
		return nil, err
	}

	var matches []*communitydomain.Community
	for _, community := range restricted {
		if community.EmailAllowed(email) {
			matches = append(matches, community)
		}
	}
	return matches, nil
}

func (s *availabilityService) AvailableUsernameBasedOn(ctx context.Context, base string) (string, error) {
	candidate := slug.Make(strings.TrimSpace(base))
	if candidate == "" {
		candidate = "member"
	}

	available, err := s.UsernameAvailable(ctx, candidate)
	if err != nil {
		return "", err
	}
	if available {
		return candidate, nil
	}

	for i := 1; ; i++ {
		next := fmt.Sprintf("%s%d", candidate, i)
		available, err := s.UsernameAvailable(ctx, next)
		if err != nil {
			return "", err
		}
		if available {
			return next, nil
		}
	}
}
