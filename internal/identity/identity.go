// Package identity declares the credential/session collaborator contract.
// Password hashing and session cookie mechanics are owned by an external
// identity subsystem; this service only calls through the interface.
package identity

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	SignIn(ctx context.Context, personID snowflake.ID) error
	SignOut(ctx context.Context, personID snowflake.ID) error
	// SkipConfirmationEmail suppresses the credential layer's automatic
	// confirmation mail; the membership factory dispatches its own.
	SkipConfirmationEmail(ctx context.Context, personID snowflake.ID) error
	// InvalidateSessions is called after a password change; the credential
	// subsystem revokes every live session for the person.
	InvalidateSessions(ctx context.Context, personID snowflake.ID) error
}

type NoopService struct{}

func NewNoop() Service {
	return &NoopService{}
}

func (s *NoopService) SignIn(ctx context.Context, personID snowflake.ID) error  { return nil }
func (s *NoopService) SignOut(ctx context.Context, personID snowflake.ID) error { return nil }
func (s *NoopService) SkipConfirmationEmail(ctx context.Context, personID snowflake.ID) error {
	return nil
}
func (s *NoopService) InvalidateSessions(ctx context.Context, personID snowflake.ID) error {
	return nil
}
