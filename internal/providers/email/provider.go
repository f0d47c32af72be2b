package email

import (
	"context"

	persondomain "github.com/opentribe/membership/internal/person/domain"
)

// Provider is the mailer collaborator. Host is the requesting host with port,
// used to build confirmation links; communityName may be empty outside a
// tenant context.
type Provider interface {
	SendConfirmationEmail(ctx context.Context, person *persondomain.Person, host, communityName string) error
	SendConfirmationInstructions(ctx context.Context, person *persondomain.Person, host, communityName string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) SendConfirmationEmail(ctx context.Context, person *persondomain.Person, host, communityName string) error {
	return nil
}

func (p *NoOpProvider) SendConfirmationInstructions(ctx context.Context, person *persondomain.Person, host, communityName string) error {
	return nil
}
