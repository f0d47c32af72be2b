package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/opentribe/membership/internal/admission/domain"
	"github.com/opentribe/membership/internal/config"
	"github.com/opentribe/membership/internal/identity"
	invitationdomain "github.com/opentribe/membership/internal/invitation/domain"
	"github.com/opentribe/membership/internal/jobs"
	membershipdomain "github.com/opentribe/membership/internal/membership/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"github.com/opentribe/membership/internal/preferences"
	"github.com/opentribe/membership/internal/providers/email"
	"github.com/opentribe/membership/pkg/db"
	"github.com/opentribe/membership/pkg/validate"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrRejectedAttempt = errors.New("rejected_attempt")

type FactoryParams struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	GenID       *snowflake.Node
	Persons     persondomain.Repository
	Memberships membershipdomain.Repository
	Invites     invitationdomain.Gate
	Credentials identity.Service
	Mailer      email.Provider
	Prefs       preferences.Service
	Queue       jobs.Queue
}

type factory struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         config.Config
	genID       *snowflake.Node
	persons     persondomain.Repository
	memberships membershipdomain.Repository
	invites     invitationdomain.Gate
	credentials identity.Service
	mailer      email.Provider
	prefs       preferences.Service
	queue       jobs.Queue
}

func NewFactory(p FactoryParams) domain.Factory {
	return &factory{
		db:          p.DB,
		log:         p.Log.Named("admission.factory"),
		cfg:         p.Config,
		genID:       p.GenID,
		persons:     p.Persons,
		memberships: p.Memberships,
		invites:     p.Invites,
		credentials: p.Credentials,
		mailer:      p.Mailer,
		prefs:       p.Prefs,
		queue:       p.Queue,
	}
}

// Admit persists the person, the membership and the invitation redemption in
// one transaction. Side effects that must not run on rollback (mail, default
// preferences, the joined job, sign-in) run after commit only.
func (s *factory) Admit(ctx context.Context, attempt *domain.Attempt, decision domain.Decision) (*domain.Result, error) {
	if !decision.Accepted {
		return nil, ErrRejectedAttempt
	}

	now := time.Now().UTC()
	person := s.buildPerson(attempt, now)
	confirmationNeeded := attempt.Community == nil || attempt.Community.EmailConfirmationRequired

	var membership *membershipdomain.CommunityMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.persons.Insert(ctx, tx, person); err != nil {
			return err
		}
		if attempt.Community != nil {
			membership = &membershipdomain.CommunityMembership{
				ID:          s.genID.Generate(),
				PersonID:    person.ID,
				CommunityID: attempt.Community.ID,
				Status:      decision.Status,
				Consent:     attempt.Community.Consent,
			}
			if decision.Invitation != nil {
				invitationID := decision.Invitation.ID
				membership.InvitationID = &invitationID
			}
			if err := s.memberships.InsertWithAdminPromotion(ctx, tx, membership); err != nil {
				return err
			}
		}
		if decision.Invitation != nil {
			if err := s.invites.Redeem(ctx, tx, decision.Invitation); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, s.duplicateFieldError(ctx, attempt.Person)
		}
		return nil, err
	}

	s.afterCommit(ctx, attempt, person, confirmationNeeded)

	return &domain.Result{
		Person:     person,
		Membership: membership,
		Redirect:   domain.RedirectFor(attempt.Community, decision.Status),
	}, nil
}

func (s *factory) buildPerson(attempt *domain.Attempt, now time.Time) *persondomain.Person {
	locale := strings.TrimSpace(attempt.Locale)
	if locale == "" {
		locale = s.cfg.DefaultLocale
	}

	person := &persondomain.Person{
		ID:           s.genID.Generate(),
		Username:     strings.TrimSpace(attempt.Person.Username),
		Email:        strings.ToLower(strings.TrimSpace(attempt.Person.Email)),
		GivenName:    strings.TrimSpace(attempt.Person.GivenName),
		FamilyName:   strings.TrimSpace(attempt.Person.FamilyName),
		PasswordHash: attempt.Person.PasswordCredential,
		Locale:       locale,
		// Test groups 1..4 split new members for experiments.
		TestGroupNumber: rand.IntN(4) + 1,
		Active:          true,
		IsOrganization:  attempt.Community != nil && attempt.Community.OnlyOrganizations,
	}
	if attempt.Community != nil && !attempt.Community.EmailConfirmationRequired {
		confirmedAt := now
		person.ConfirmedAt = &confirmedAt
	}
	return person
}

// duplicateFieldError pins a unique violation to the offending field after
// rollback; the transaction connection is already aborted at that point.
func (s *factory) duplicateFieldError(ctx context.Context, attrs domain.PersonAttributes) error {
	if taken, err := s.persons.UsernameExists(ctx, s.db, strings.TrimSpace(attrs.Username)); err == nil && taken {
		return validate.New("username", "taken", "username is already in use")
	}
	if inUse, err := s.persons.EmailInUse(ctx, s.db, attrs.Email, 0); err == nil && inUse {
		return validate.New("email", "taken", "email address is already in use")
	}
	return validate.New("person", "conflict", "person could not be created")
}

func (s *factory) afterCommit(ctx context.Context, attempt *domain.Attempt, person *persondomain.Person, confirmationNeeded bool) {
	if err := s.credentials.SkipConfirmationEmail(ctx, person.ID); err != nil {
		s.log.Warn("failed to suppress credential confirmation mail", zap.Error(err))
	}

	if confirmationNeeded {
		s.sendConfirmation(ctx, attempt, person)
	}

	if err := s.prefs.ApplyDefaults(ctx, person); err != nil {
		s.log.Warn("failed to apply default preferences",
			zap.String("person_id", person.ID.String()), zap.Error(err))
	}

	if attempt.Community != nil {
		err := s.queue.Enqueue(ctx, jobs.KindCommunityJoined, datatypes.JSONMap{
			"person_id":    person.ID.String(),
			"community_id": attempt.Community.ID.String(),
		})
		if err != nil {
			s.log.Warn("failed to enqueue community joined job",
				zap.String("person_id", person.ID.String()), zap.Error(err))
		}
	}

	if attempt.Session != nil {
		attempt.Session.InvitationCode = ""
		attempt.Session.PersonID = person.ID
	}
	if err := s.credentials.SignIn(ctx, person.ID); err != nil {
		s.log.Warn("failed to establish session", zap.Error(err))
	}
}

// sendConfirmation resets confirmed_at explicitly before mailing. The
// credential layer may have stamped the column on insert; a pending
// confirmation must not read as confirmed.
func (s *factory) sendConfirmation(ctx context.Context, attempt *domain.Attempt, person *persondomain.Person) {
	sentAt := time.Now().UTC()
	err := s.persons.UpdateColumns(ctx, s.db, person.ID, map[string]any{
		"confirmed_at":         nil,
		"confirmation_sent_at": sentAt,
	})
	if err != nil {
		s.log.Warn("failed to reset confirmation state",
			zap.String("person_id", person.ID.String()), zap.Error(err))
		return
	}
	person.ConfirmedAt = nil
	person.ConfirmationSentAt = &sentAt

	communityName := ""
	if attempt.Community != nil {
		communityName = attempt.Community.Name
	}
	if err := s.mailer.SendConfirmationEmail(ctx, person, attempt.Host, communityName); err != nil {
		s.log.Warn("failed to send confirmation email",
			zap.String("person_id", person.ID.String()), zap.Error(err))
	}
}
