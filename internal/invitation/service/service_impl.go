package service

import (
	"context"
	"errors"
	"strings"
	"time"

	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/invitation/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
	Repo   domain.Repository
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	allowGlobal bool
}

func New(p Params) domain.Gate {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("invitation.service"),
		repo:        p.Repo,
		allowGlobal: p.Config.GlobalInvitationCodes,
	}
}

func (s *service) CodeUsable(ctx context.Context, code string, community *communitydomain.Community) (bool, error) {
	if strings.TrimSpace(code) == "" {
		return false, nil
	}

	invitation, err := s.Resolve(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if invitation.Exhausted() || invitation.Expired(time.Now().UTC()) {
		return false, nil
	}

	if invitation.Global() {
		return s.allowGlobal, nil
	}
	if community == nil {
		return false, nil
	}
	return invitation.CommunityID == community.ID, nil
}

func (s *service) Resolve(ctx context.Context, code string) (*domain.Invitation, error) {
	return s.repo.FindByCode(ctx, s.db, code)
}

func (s *service) Redeem(ctx context.Context, db *gorm.DB, invitation *domain.Invitation) error {
	if db == nil {
		db = s.db
	}
	consumed, err := s.repo.DecrementUses(ctx, db, invitation.ID)
	if err != nil {
		return err
	}
	if !consumed {
		return domain.ErrExhausted
	}
	invitation.UsesLeft--
	return nil
}
