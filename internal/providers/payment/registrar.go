// Package payment registers member payout details with the payment gateway a
// community is configured for.
package payment

import (
	"context"

	communitydomain "github.com/opentribe/membership/internal/community/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
)

// Registrar is one gateway's payout onboarding. Field sets are all-or-none:
// the caller must pass every required field or nothing.
type Registrar interface {
	Kind() communitydomain.PaymentGatewayKind
	RequiredFields() []string
	RegisterPayoutDetails(ctx context.Context, person *persondomain.Person, fields map[string]string) error
}

// ProviderError carries a gateway rejection message. It is surfaced to the
// member verbatim.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string { return e.Message }

// Submitted reports whether any of the registrar's fields carry a value. An
// entirely empty field set is not a payout update.
func Submitted(r Registrar, fields map[string]string) bool {
	for _, name := range r.RequiredFields() {
		if fields[name] != "" {
			return true
		}
	}
	return false
}

// Missing lists required fields absent from a submitted set.
func Missing(r Registrar, fields map[string]string) []string {
	var missing []string
	for _, name := range r.RequiredFields() {
		if fields[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Registry resolves the registrar for a community's configured gateway.
type Registry struct {
	byKind map[communitydomain.PaymentGatewayKind]Registrar
}

func NewRegistry(registrars ...Registrar) *Registry {
	byKind := make(map[communitydomain.PaymentGatewayKind]Registrar, len(registrars))
	for _, r := range registrars {
		byKind[r.Kind()] = r
	}
	return &Registry{byKind: byKind}
}

// For returns the registrar for kind, or nil when the community has no payout
// gateway.
func (r *Registry) For(kind communitydomain.PaymentGatewayKind) Registrar {
	return r.byKind[kind]
}
