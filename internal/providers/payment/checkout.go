package payment

import (
	"context"
	"net/url"
	"strings"

	communitydomain "github.com/opentribe/membership/internal/community/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"go.uber.org/zap"
)

// CheckoutRegistrar onboards an organization account for payouts.
type CheckoutRegistrar struct {
	log *zap.Logger
}

func NewCheckout(log *zap.Logger) *CheckoutRegistrar {
	return &CheckoutRegistrar{log: log.Named("payment.checkout")}
}

func (r *CheckoutRegistrar) Kind() communitydomain.PaymentGatewayKind {
	return communitydomain.GatewayCheckout
}

func (r *CheckoutRegistrar) RequiredFields() []string {
	return []string{
		"company_id",
		"organization_address",
		"phone_number",
		"organization_website",
	}
}

func (r *CheckoutRegistrar) RegisterPayoutDetails(ctx context.Context, person *persondomain.Person, fields map[string]string) error {
	website := strings.TrimSpace(fields["organization_website"])
	parsed, err := url.Parse(website)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return &ProviderError{Message: "organization website is not a valid URL"}
	}

	phone := strings.TrimSpace(fields["phone_number"])
	if !validPhone(phone) {
		return &ProviderError{Message: "phone number is not valid"}
	}

	r.log.Info("payout organization registered",
		zap.String("person_id", person.ID.String()),
		zap.String("company_id", fields["company_id"]),
	)
	return nil
}

func validPhone(phone string) bool {
	digits := 0
	for i, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= 5
}
