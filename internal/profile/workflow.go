// Package profile applies member-initiated profile and payout updates.
package profile

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	communitydomain "github.com/opentribe/membership/internal/community/domain"
	"github.com/opentribe/membership/internal/identity"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"github.com/opentribe/membership/internal/providers/email"
	"github.com/opentribe/membership/internal/providers/payment"
	"github.com/opentribe/membership/pkg/db"
	"github.com/opentribe/membership/pkg/validate"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LocationChange is a submitted street address. An empty address means the
// stored location should be removed.
type LocationChange struct {
	Address   string
	Latitude  float64
	Longitude float64
}

// Changes carries the submitted update. Nil pointer fields were not
// submitted. PasswordCredential is an opaque credential derived upstream.
type Changes struct {
	GivenName          *string
	FamilyName         *string
	Email              *string
	Locale             *string
	PasswordCredential *string
	Location           *LocationChange
	// RequestNewConfirmation asks for fresh confirmation instructions.
	RequestNewConfirmation bool
	PayoutFields           map[string]string
}

type Result struct {
	Person *persondomain.Person
	// PasswordChanged means every live session for the person was revoked;
	// the caller must re-establish the current one.
	PasswordChanged bool
	// ConfirmationSent distinguishes the "check your inbox" success message.
	ConfirmationSent bool
}

type Workflow interface {
	Update(ctx context.Context, personID snowflake.ID, changes Changes, community *communitydomain.Community, host string) (*Result, error)
}

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Persons     persondomain.Repository
	GenID       *snowflake.Node
	Registry    *payment.Registry
	Credentials identity.Service
	Mailer      email.Provider
}

type workflow struct {
	db          *gorm.DB
	log         *zap.Logger
	persons     persondomain.Repository
	genID       *snowflake.Node
	registry    *payment.Registry
	credentials identity.Service
	mailer      email.Provider
}

func New(p Params) Workflow {
	return &workflow{
		db:          p.DB,
		log:         p.Log.Named("profile.workflow"),
		persons:     p.Persons,
		genID:       p.GenID,
		registry:    p.Registry,
		credentials: p.Credentials,
		mailer:      p.Mailer,
	}
}

func (s *workflow) Update(ctx context.Context, personID snowflake.ID, changes Changes, community *communitydomain.Community, host string) (*Result, error) {
	person, err := s.persons.FindByID(ctx, s.db, personID)
	if err != nil {
		return nil, err
	}

	newEmail := ""
	if changes.Email != nil {
		newEmail = strings.ToLower(strings.TrimSpace(*changes.Email))
	}

	registrar := s.registrar(community)
	if ve := s.validateChanges(person, changes, newEmail, community, registrar); !ve.Empty() {
		for _, field := range ve.Fields {
			s.log.Info("profile update rejected",
				zap.String("person_id", personID.String()),
				zap.String("field", field.Field),
				zap.String("code", field.Code),
			)
		}
		return nil, ve
	}

	// A payout-detail rejection from the gateway aborts the whole update;
	// its message reaches the member verbatim.
	if registrar != nil && payment.Submitted(registrar, changes.PayoutFields) {
		if err := registrar.RegisterPayoutDetails(ctx, person, changes.PayoutFields); err != nil {
			return nil, err
		}
	}

	emailChanged := newEmail != "" && newEmail != person.Email
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if changes.Location != nil {
			if err := s.applyLocation(ctx, tx, person.ID, *changes.Location); err != nil {
				return err
			}
		}
		if emailChanged && person.Confirmed() {
			if err := s.archiveEmail(ctx, tx, person); err != nil {
				return err
			}
		}
		values := columnValues(changes, newEmail, emailChanged)
		if len(values) == 0 {
			return nil
		}
		return s.persons.UpdateColumns(ctx, tx, person.ID, values)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, validate.New("email", "taken", "email address is already in use")
		}
		return nil, err
	}

	result := &Result{Person: person}
	s.applyToLoaded(person, changes, newEmail, emailChanged)

	if changes.PasswordCredential != nil {
		if err := s.credentials.InvalidateSessions(ctx, person.ID); err != nil {
			s.log.Warn("failed to invalidate sessions after password change",
				zap.String("person_id", person.ID.String()), zap.Error(err))
		}
		result.PasswordChanged = true
	}

	if changes.RequestNewConfirmation {
		communityName := ""
		if community != nil {
			communityName = community.Name
		}
		if err := s.mailer.SendConfirmationInstructions(ctx, person, host, communityName); err != nil {
			s.log.Warn("failed to send confirmation instructions",
				zap.String("person_id", person.ID.String()), zap.Error(err))
		} else {
			result.ConfirmationSent = true
		}
	}

	return result, nil
}

func (s *workflow) registrar(community *communitydomain.Community) payment.Registrar {
	if community == nil {
		return nil
	}
	return s.registry.For(community.PaymentGateway)
}

// validateChanges collects every pre-mutation rejection; the caller surfaces
// the first and logs the rest.
func (s *workflow) validateChanges(person *persondomain.Person, changes Changes, newEmail string, community *communitydomain.Community, registrar payment.Registrar) *validate.ValidationError {
	ve := &validate.ValidationError{}

	// Requesting fresh confirmation must not smuggle a disallowed address
	// into a restricted community.
	if changes.RequestNewConfirmation && community.EmailRestricted() {
		target := newEmail
		if target == "" {
			target = person.Email
		}
		if !community.EmailAllowed(target) {
			ve.Add("email", "not_allowed", "email address is not allowed in this community")
		}
	}

	if changes.Email != nil && newEmail == "" {
		ve.Add("email", "blank", "email address cannot be blank")
	}

	if registrar != nil && payment.Submitted(registrar, changes.PayoutFields) {
		for _, name := range payment.Missing(registrar, changes.PayoutFields) {
			ve.Add(name, "required", name+" is required")
		}
	}

	return ve
}

// applyLocation deletes first on an empty address so a cleared form removes
// the stored location instead of zeroing it.
func (s *workflow) applyLocation(ctx context.Context, tx *gorm.DB, personID snowflake.ID, change LocationChange) error {
	if strings.TrimSpace(change.Address) == "" {
		return s.persons.DeleteLocation(ctx, tx, personID)
	}
	return s.persons.UpsertLocation(ctx, tx, &persondomain.Location{
		ID:        s.genID.Generate(),
		PersonID:  personID,
		Address:   strings.TrimSpace(change.Address),
		Latitude:  change.Latitude,
		Longitude: change.Longitude,
	})
}

// archiveEmail keeps the outgoing confirmed address as a historical email so
// it cannot be reused in an email-restricted community. Already-archived
// addresses are skipped, so retried updates archive at most once.
func (s *workflow) archiveEmail(ctx context.Context, tx *gorm.DB, person *persondomain.Person) error {
	existing, err := s.persons.FindAdditionalEmail(ctx, tx, person.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.persons.InsertAdditionalEmail(ctx, tx, &persondomain.Email{
		ID:          s.genID.Generate(),
		PersonID:    person.ID,
		Address:     person.Email,
		ConfirmedAt: person.ConfirmedAt,
	})
}

func columnValues(changes Changes, newEmail string, emailChanged bool) map[string]any {
	values := map[string]any{}
	if changes.GivenName != nil {
		values["given_name"] = strings.TrimSpace(*changes.GivenName)
	}
	if changes.FamilyName != nil {
		values["family_name"] = strings.TrimSpace(*changes.FamilyName)
	}
	if changes.Locale != nil {
		values["locale"] = strings.TrimSpace(*changes.Locale)
	}
	if changes.PasswordCredential != nil {
		values["password_hash"] = *changes.PasswordCredential
	}
	if emailChanged {
		values["email"] = newEmail
		// The replacement address starts unconfirmed.
		values["confirmed_at"] = nil
	}
	return values
}

func (s *workflow) applyToLoaded(person *persondomain.Person, changes Changes, newEmail string, emailChanged bool) {
	if changes.GivenName != nil {
		person.GivenName = strings.TrimSpace(*changes.GivenName)
	}
	if changes.FamilyName != nil {
		person.FamilyName = strings.TrimSpace(*changes.FamilyName)
	}
	if changes.Locale != nil {
		person.Locale = strings.TrimSpace(*changes.Locale)
	}
	if changes.PasswordCredential != nil {
		person.PasswordHash = *changes.PasswordCredential
	}
	if emailChanged {
		person.Email = newEmail
		person.ConfirmedAt = nil
	}
	person.UpdatedAt = time.Now().UTC()
}
