package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"
)

// Sender is the part of *gomail.Dialer the mailer needs.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer renders notices as plain HTML mails and sends them over SMTP.
type Mailer struct {
	from       string
	adminEmail string
	sender     Sender
}

type MailerConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	From       string
	AdminEmail string
	SkipVerify bool
}

func NewMailer(cfg MailerConfig) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	if cfg.SkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Mailer{from: cfg.From, adminEmail: cfg.AdminEmail, sender: d}
}

// NewMailerWithSender is used by tests and by callers owning their dialer.
func NewMailerWithSender(from, adminEmail string, s Sender) *Mailer {
	return &Mailer{from: from, adminEmail: adminEmail, sender: s}
}

func (m *Mailer) SendBookingConfirmation(ctx context.Context, n BookingNotice) error {
	if n.Email == "" {
		return fmt.Errorf("booking %d: no recipient", n.BookingID)
	}
	subject := fmt.Sprintf("Booking #%d confirmed", n.BookingID)
	body := fmt.Sprintf(`<h1>Your booking is confirmed</h1>
<p>Hi %s,</p>
<p>Booking <b>#%d</b> from %s to %s is confirmed.</p>
<p>Amount paid: %s</p>
<p>Booking reference: %s</p>`, n.FullName, n.BookingID, n.CheckIn, n.CheckOut, money(n.Amount, n.Currency), n.Reference)
	return m.send(ctx, []string{n.Email}, subject, body)
}

// SendBookingFailureOrAdminNotice tells the guest about a failed or
// cancelled booking; admin overrides go to the admin mailbox as well.
func (m *Mailer) SendBookingFailureOrAdminNotice(ctx context.Context, n BookingNotice) error {
	var to []string
	if n.Email != "" && n.Kind != KindAdminOverride {
		to = append(to, n.Email)
	}
	if m.adminEmail != "" && (n.Kind == KindAdminOverride || n.Kind == KindPaymentFailed) {
		to = append(to, m.adminEmail)
	}
	if len(to) == 0 {
		return fmt.Errorf("booking %d: no recipient", n.BookingID)
	}

	var subject, headline string
	switch n.Kind {
	case KindPaymentFailed:
		subject, headline = fmt.Sprintf("Payment failed for booking #%d", n.BookingID), "Your payment did not go through"
	case KindAdminOverride:
		subject, headline = fmt.Sprintf("Booking #%d status set to %s", n.BookingID, n.Status), "Booking status changed by an administrator"
	default:
		subject, headline = fmt.Sprintf("Booking #%d cancelled", n.BookingID), "Your booking was cancelled"
	}
	body := fmt.Sprintf(`<h1>%s</h1>
<p>Booking <b>#%d</b> (%s to %s) is now %s.</p>`, headline, n.BookingID, n.CheckIn, n.CheckOut, strings.ToLower(n.Status))
	if n.Reason != "" {
		body += fmt.Sprintf("\n<p>Reason: %s</p>", n.Reason)
	}
	return m.send(ctx, to, subject, body)
}

func (m *Mailer) send(ctx context.Context, to []string, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	// gomail has no context support; run the dial in the background so a
	// stuck SMTP server cannot outlive ctx.
	done := make(chan error, 1)
	go func() { done <- m.sender.DialAndSend(msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func money(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}
