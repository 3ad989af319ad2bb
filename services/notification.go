package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"google.golang.org/api/option"

	"splitbills-backend/ledger"
	"splitbills-backend/models"
)

// SettlementNotice tells the payee a payment to them was recorded.
type SettlementNotice struct {
	GroupID   uuid.UUID
	GroupName string
	Currency  string
	Payer     models.User
	Payee     models.User
	Amount    decimal.Decimal
}

// PlanNotice tells every payer in a committed plan what they owe.
type PlanNotice struct {
	GroupID   uuid.UUID
	GroupName string
	Currency  string
	Transfers []ledger.Transfer
	Users     map[uuid.UUID]models.User
}

type Notifier interface {
	SettlementPaid(ctx context.Context, n SettlementNotice) error
	PlanReady(ctx context.Context, n PlanNotice) error
}

type NopNotifier struct{}

func (NopNotifier) SettlementPaid(context.Context, SettlementNotice) error { return nil }
func (NopNotifier) PlanReady(context.Context, PlanNotice) error            { return nil }

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) SettlementPaid(ctx context.Context, n SettlementNotice) error {
	var errs []error
	for _, nt := range m {
		errs = append(errs, nt.SettlementPaid(ctx, n))
	}
	return errors.Join(errs...)
}

func (m MultiNotifier) PlanReady(ctx context.Context, n PlanNotice) error {
	var errs []error
	for _, nt := range m {
		errs = append(errs, nt.PlanReady(ctx, n))
	}
	return errors.Join(errs...)
}

// ============================================================
// EMAIL via SendGrid
// ============================================================

type EmailNotifier struct {
	fromEmail string
	fromName  string
	appURL    string
	send      func(ctx context.Context, msg *mail.SGMailV3) error
}

// NewEmailNotifier sends through SendGrid. Emails link back to appURL when
// it is set.
func NewEmailNotifier(apiKey, fromEmail, fromName, appURL string) *EmailNotifier {
	client := sendgrid.NewSendClient(apiKey)
	return &EmailNotifier{
		fromEmail: fromEmail,
		fromName:  fromName,
		appURL:    appURL,
		send: func(ctx context.Context, msg *mail.SGMailV3) error {
			resp, err := client.SendWithContext(ctx, msg)
			if err != nil {
				return fmt.Errorf("sendgrid: %w", err)
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
			}
			return nil
		},
	}
}

func (e *EmailNotifier) SettlementPaid(ctx context.Context, n SettlementNotice) error {
	if n.Payee.Email == "" {
		return nil
	}
	body, err := render(settlementEmail, map[string]any{
		"PayerName": n.Payer.Name,
		"PayeeName": n.Payee.Name,
		"GroupName": n.GroupName,
		"Currency":  n.Currency,
		"Amount":    n.Amount.StringFixed(ledger.CurrencyPlaces),
		"AppName":   e.fromName,
		"AppURL":    e.appURL,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s settled up with you in %s", n.Payer.Name, n.GroupName)
	msg := mail.NewSingleEmail(
		mail.NewEmail(e.fromName, e.fromEmail),
		subject,
		mail.NewEmail(n.Payee.Name, n.Payee.Email),
		fmt.Sprintf("%s paid you %s %s in %s.", n.Payer.Name, n.Currency, n.Amount.StringFixed(ledger.CurrencyPlaces), n.GroupName),
		body,
	)
	if err := e.send(ctx, msg); err != nil {
		return err
	}
	slog.Info("Settlement email sent", "group_id", n.GroupID, "to", n.Payee.ID)
	return nil
}

func (e *EmailNotifier) PlanReady(ctx context.Context, n PlanNotice) error {
	var errs []error
	for _, t := range n.Transfers {
		payer, payee := n.Users[t.FromID], n.Users[t.ToID]
		if payer.Email == "" {
			continue
		}
		amount := t.Amount.StringFixed(ledger.CurrencyPlaces)
		body, err := render(planEmail, map[string]any{
			"PayerName": payer.Name,
			"PayeeName": payee.Name,
			"GroupName": n.GroupName,
			"Currency":  n.Currency,
			"Amount":    amount,
			"AppName":   e.fromName,
			"AppURL":    e.appURL,
		})
		if err != nil {
			return err
		}
		msg := mail.NewSingleEmail(
			mail.NewEmail(e.fromName, e.fromEmail),
			fmt.Sprintf("Settle up in %s", n.GroupName),
			mail.NewEmail(payer.Name, payer.Email),
			fmt.Sprintf("Pay %s %s %s to settle up in %s.", payee.Name, n.Currency, amount, n.GroupName),
			body,
		)
		errs = append(errs, e.send(ctx, msg))
	}
	return errors.Join(errs...)
}

var settlementEmail = template.Must(template.New("settlement").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">Payment Recorded</h2>
		<p>Hi <strong>{{.PayeeName}}</strong>,</p>
		<p><strong>{{.PayerName}}</strong> paid you <strong>{{.Currency}} {{.Amount}}</strong> in <strong>{{.GroupName}}</strong>.</p>
		<p>Check the app to see your updated balances.</p>
		{{if .AppURL}}<p><a href="{{.AppURL}}" style="color: #1DB954;">Open {{.AppName}}</a></p>{{end}}
	</div>
</body>
</html>`))

var planEmail = template.Must(template.New("plan").Parse(`
<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
		<h2 style="color: #1DB954; margin-top: 0;">Time to Settle Up</h2>
		<p>Hi <strong>{{.PayerName}}</strong>,</p>
		<p>To settle up in <strong>{{.GroupName}}</strong>, pay <strong>{{.PayeeName}}</strong>:</p>
		<div style="background: #f8f9fa; border-radius: 8px; padding: 16px; margin: 16px 0;">
			<p style="margin: 4px 0; color: #e53e3e; font-size: 18px;"><strong>{{.Currency}} {{.Amount}}</strong></p>
		</div>
		{{if .AppURL}}<p><a href="{{.AppURL}}" style="color: #1DB954;">Open {{.AppName}}</a> to record the payment.</p>{{end}}
	</div>
</body>
</html>`))

func render(t *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// ============================================================
// PUSH via Firebase Cloud Messaging
// ============================================================

type pushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type PushNotifier struct {
	client pushSender
}

// NewPushNotifier builds an FCM client from a service account file.
func NewPushNotifier(ctx context.Context, credentialsFile string) (*PushNotifier, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &PushNotifier{client: client}, nil
}

func (p *PushNotifier) SettlementPaid(ctx context.Context, n SettlementNotice) error {
	return p.push(ctx, n.Payee.FCMToken,
		fmt.Sprintf("%s paid you", n.Payer.Name),
		fmt.Sprintf("%s paid you %s %s in %s", n.Payer.Name, n.Currency, n.Amount.StringFixed(ledger.CurrencyPlaces), n.GroupName),
		map[string]string{"type": "settlement_paid", "group_id": n.GroupID.String()},
	)
}

func (p *PushNotifier) PlanReady(ctx context.Context, n PlanNotice) error {
	var errs []error
	for _, t := range n.Transfers {
		payer, payee := n.Users[t.FromID], n.Users[t.ToID]
		errs = append(errs, p.push(ctx, payer.FCMToken,
			fmt.Sprintf("Settle up in %s", n.GroupName),
			fmt.Sprintf("Pay %s %s %s", payee.Name, n.Currency, t.Amount.StringFixed(ledger.CurrencyPlaces)),
			map[string]string{"type": "settle_up", "group_id": n.GroupID.String()},
		))
	}
	return errors.Join(errs...)
}

// push skips users without a registered device.
func (p *PushNotifier) push(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return nil
	}
	_, err := p.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}
