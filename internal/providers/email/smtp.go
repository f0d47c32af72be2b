package email

import (
	"context"
	"fmt"
	"net/smtp"

	persondomain "github.com/opentribe/membership/internal/person/domain"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPProvider struct {
	cfg Config
}

func NewSMTP(cfg Config) *SMTPProvider {
	return &SMTPProvider{cfg: cfg}
}

func (p *SMTPProvider) SendConfirmationEmail(ctx context.Context, person *persondomain.Person, host, communityName string) error {
	subject := "Confirm your email address"
	if communityName != "" {
		subject = fmt.Sprintf("Confirm your email address to join %s", communityName)
	}
	body := fmt.Sprintf("Hi %s,\r\n\r\nPlease confirm your email address by visiting https://%s/confirm.\r\n",
		person.GivenNameOrUsername(), host)
	return p.send(person.Email, subject, body)
}

func (p *SMTPProvider) SendConfirmationInstructions(ctx context.Context, person *persondomain.Person, host, communityName string) error {
	subject := "Confirm your new email address"
	body := fmt.Sprintf("Hi %s,\r\n\r\nYou changed your address. Confirm it by visiting https://%s/confirm.\r\n",
		person.GivenNameOrUsername(), host)
	return p.send(person.Email, subject, body)
}

func (p *SMTPProvider) send(to, subject, body string) error {
	auth := smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)

	msg := []byte(fmt.Sprintf("To: %s\r\nFrom: %s\r\nSubject: %s\r\n\r\n%s", to, p.cfg.From, subject, body))
	return smtp.SendMail(addr, auth, p.cfg.From, []string{to}, msg)
}
