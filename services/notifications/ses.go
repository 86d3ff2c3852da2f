package notifications

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends transactional email through AWS SES. When the region or
// sender address is unset the mailer logs and drops messages instead of
// failing requests, so email stays optional in development.
type Mailer struct {
	client *sesv2.Client
	sender string
}

// NewMailer builds an SES mailer. Credentials come from the default AWS
// chain (env vars, shared config, instance role).
func NewMailer(ctx context.Context, region, sender string) *Mailer {
	if region == "" || sender == "" {
		log.Println("SES not configured, email notifications disabled")
		return &Mailer{}
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		log.Printf("Failed to load AWS config, email notifications disabled: %v", err)
		return &Mailer{}
	}

	return &Mailer{
		client: sesv2.NewFromConfig(cfg),
		sender: sender,
	}
}

// Enabled reports whether the mailer can send
func (m *Mailer) Enabled() bool {
	return m.client != nil
}

// Send delivers a plain-text email to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if m.client == nil {
		log.Printf("Email dropped (SES disabled): to=%s subject=%q", to, subject)
		return nil
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	}

	_, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

// SendBookingConfirmation emails both parties after a booking is confirmed.
func (m *Mailer) SendBookingConfirmation(ctx context.Context, investorEmail, analystEmail, analystName string, startAt, endAt time.Time) {
	subject := "Session booking confirmed"
	body := fmt.Sprintf(
		"Your session with %s is confirmed.\n\nStart: %s\nEnd:   %s\n\nYou will receive a meeting link before the session.",
		analystName,
		startAt.Format(time.RFC1123),
		endAt.Format(time.RFC1123),
	)
	if err := m.Send(ctx, investorEmail, subject, body); err != nil {
		log.Printf("Failed to send booking confirmation to investor: %v", err)
	}

	analystBody := fmt.Sprintf(
		"A session on your calendar is confirmed.\n\nStart: %s\nEnd:   %s",
		startAt.Format(time.RFC1123),
		endAt.Format(time.RFC1123),
	)
	if err := m.Send(ctx, analystEmail, subject, analystBody); err != nil {
		log.Printf("Failed to send booking confirmation to analyst: %v", err)
	}
}

// SendReportFlagged notifies the analyst that a submitted report failed
// the quality gate.
func (m *Mailer) SendReportFlagged(ctx context.Context, analystEmail, reportTitle, reason string) {
	subject := "Research report flagged for review"
	body := fmt.Sprintf(
		"Your report %q was flagged during quality scoring.\n\nReason: %s\n\nPlease revise and resubmit from your dashboard.",
		reportTitle, reason,
	)
	if err := m.Send(ctx, analystEmail, subject, body); err != nil {
		log.Printf("Failed to send flag notification: %v", err)
	}
}

// SendPaymentReceipt emails the investor after a captured payment.
func (m *Mailer) SendPaymentReceipt(ctx context.Context, investorEmail, planName, amount, currency, paymentID string) {
	subject := "Payment receipt"
	body := fmt.Sprintf(
		"We received your payment of %s %s for the %s plan.\n\nPayment ID: %s\n\nYour subscription is now active.",
		currency, amount, planName, paymentID,
	)
	if err := m.Send(ctx, investorEmail, subject, body); err != nil {
		log.Printf("Failed to send payment receipt: %v", err)
	}
}

// SendCertificationDecision notifies an analyst of the admin's verification
// decision.
func (m *Mailer) SendCertificationDecision(ctx context.Context, analystEmail, state string) {
	subject := "Analyst certification update"
	body := fmt.Sprintf("Your analyst certification status is now: %s.", state)
	if err := m.Send(ctx, analystEmail, subject, body); err != nil {
		log.Printf("Failed to send certification notification: %v", err)
	}
}
