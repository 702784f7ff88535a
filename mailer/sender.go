package mailer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"campaign-sender/config"
	"campaign-sender/models"
	"campaign-sender/policy"
)

// ErrNoTemplates is returned when the policy document carries no
// message templates.
var ErrNoTemplates = errors.New("no message templates configured")

// Sender delivers one rendered message per call over SMTP. A fresh
// connection is made per message so auth failures surface on the very
// send that hit them, which the stop-on-error policy relies on.
type Sender struct {
	host string
	port int
}

func NewSender(cfg *config.Config) *Sender {
	return &Sender{
		host: cfg.SMTP.Host,
		port: cfg.SMTP.Port,
	}
}

// Send picks a random template, renders it for the recipient and
// delivers it. It returns the 1-based ID of the template used.
func (s *Sender) Send(ctx context.Context, from, password string, r models.Recipient, templates []policy.Template) (int, error) {
	templateID, tmpl, err := PickTemplate(templates)
	if err != nil {
		return 0, err
	}

	e := email.NewEmail()
	e.From = from
	e.To = []string{r.Email}
	e.Subject = Render(tmpl.Subject, r)
	e.Text = []byte(Render(tmpl.Body, r))

	auth := smtp.PlainAuth("", from, password, s.host)
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	if err := e.Send(addr, auth); err != nil {
		return 0, fmt.Errorf("failed to send email: %w", err)
	}

	return templateID, nil
}

// PickTemplate selects one template uniformly at random. IDs are
// 1-based to match the Template_ID column of the sent log.
func PickTemplate(templates []policy.Template) (int, policy.Template, error) {
	if len(templates) == 0 {
		return 0, policy.Template{}, ErrNoTemplates
	}
	idx := rand.Intn(len(templates))
	return idx + 1, templates[idx], nil
}

// Render substitutes the {Name} and {Email} placeholders with the
// recipient's literal values. Replacement is a single pass over the
// template, so placeholder tokens inside recipient values are not
// substituted again. Unmatched placeholders stay verbatim.
func Render(text string, r models.Recipient) string {
	return strings.NewReplacer(
		"{Name}", r.Name,
		"{Email}", r.Email,
	).Replace(text)
}
