// Package notify emails the back office about new customer activity.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/zoe-motors/storefront-api/databases"
	"github.com/zoe-motors/storefront-api/models"
	templates "github.com/zoe-motors/storefront-api/templates/html"
)

// Mailer sends one notice to one address
type Mailer interface {
	Send(ctx context.Context, to string, n templates.Notice) error
}

// SendgridMailer delivers through the SendGrid v3 API
type SendgridMailer struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendgridMailer builds a mailer sending as fromAddr
func NewSendgridMailer(apiKey, fromAddr string) *SendgridMailer {
	return &SendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Zoe Motors", fromAddr),
	}
}

// Send renders the notice into the branded template and sends it with a
// plain-text alternative
func (m *SendgridMailer) Send(ctx context.Context, to string, n templates.Notice) error {
	html, err := templates.RenderNotice(n)
	if err != nil {
		return fmt.Errorf("rendering notice: %w", err)
	}
	msg := mail.NewSingleEmail(m.from, n.Subject, mail.NewEmail("", to), n.Text(), html)
	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// NopMailer only logs; used when no API key is configured
type NopMailer struct{}

// Send logs the email instead of delivering it
func (NopMailer) Send(_ context.Context, to string, n templates.Notice) error {
	zap.S().Infow("email not sent, mailer disabled", "to", to, "subject", n.Subject)
	return nil
}

// AdminNotifier mails every admin account
type AdminNotifier struct {
	Users  databases.UserDatabase
	Mailer Mailer
	// BaseURL prefixes action links given as site paths
	BaseURL string
}

// Notify sends the notice to all admins and reports every failed address
func (n AdminNotifier) Notify(ctx context.Context, notice templates.Notice) error {
	if notice.Action != nil && strings.HasPrefix(notice.Action.URL, "/") {
		a := *notice.Action
		a.URL = strings.TrimSuffix(n.BaseURL, "/") + a.URL
		notice.Action = &a
	}
	admins, err := n.Users.Find(ctx, bson.M{"user.role": models.RoleAdmin})
	if err != nil {
		return fmt.Errorf("listing admins: %w", err)
	}
	var failed []string
	for _, a := range admins {
		if a.Details.Email == "" {
			continue
		}
		if err := n.Mailer.Send(ctx, a.Details.Email, notice); err != nil {
			zap.S().Errorw("failed to email admin", "to", a.Details.Email, "error", err)
			failed = append(failed, a.Details.Email)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("could not email %s", strings.Join(failed, ", "))
	}
	return nil
}
