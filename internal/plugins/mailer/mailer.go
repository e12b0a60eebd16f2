// Package mailer delivers the out-of-band half of every token flow: the
// verification link after pre-registration and the reset link after a
// password reset request. The plaintext token only ever exists in these
// mails and in the client's hands; the store holds digests.
package mailer

import (
	"fmt"
	"net/url"

	"gopkg.in/gomail.v2"

	"github.com/werkschau/server/internal/config"
)

// Mailer sends verification and reset links over SMTP.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
}

// New creates a Mailer from the SMTP config. The baseURL is the public
// frontend URL the emailed links point at.
func New(cfg config.SMTPConfig, baseURL string) *Mailer {
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:    cfg.From,
		baseURL: baseURL,
	}
}

// SendVerificationLink mails the registration verification link to a newly
// pre-registered viewer.
func (m *Mailer) SendVerificationLink(email, plaintextCode, recipientName string) error {
	link := m.verificationLink(email, plaintextCode)

	body := fmt.Sprintf(`
		<h2>Willkommen bei Werkschau, %s!</h2>
		<p>Bitte best&auml;tige deine E-Mail-Adresse, um dein Konto zu aktivieren:</p>
		<p><a href="%s">E-Mail-Adresse best&auml;tigen</a></p>
		<p>Wenn du dich nicht registriert hast, kannst du diese E-Mail ignorieren.</p>
	`, recipientName, link)

	return m.send(email, "E-Mail-Adresse bestätigen", body)
}

// SendResetLink mails the password reset link. Issuing a new reset request
// invalidates any link sent earlier, so only the newest mail works.
func (m *Mailer) SendResetLink(email, plaintextToken, recipientName string) error {
	link := m.resetLink(email, plaintextToken)

	body := fmt.Sprintf(`
		<h3>Passwort zur&uuml;cksetzen</h3>
		<p>Hallo %s,</p>
		<p>wir haben eine Anfrage erhalten, das Passwort deines Kontos zur&uuml;ckzusetzen:</p>
		<p><a href="%s">Neues Passwort vergeben</a></p>
		<p>Der Link ist eine Stunde g&uuml;ltig. Wenn du das nicht warst, kannst du diese E-Mail ignorieren.</p>
	`, recipientName, link)

	return m.send(email, "Passwort zurücksetzen", body)
}

// verificationLink builds the frontend URL that carries the plaintext code
// back to POST /api/register.
func (m *Mailer) verificationLink(email, plaintextCode string) string {
	return fmt.Sprintf("%s/verify?c=%s&e=%s",
		m.baseURL, url.QueryEscape(plaintextCode), url.QueryEscape(email))
}

// resetLink builds the frontend URL that carries the plaintext reset token
// back to POST /api/reset-password.
func (m *Mailer) resetLink(email, plaintextToken string) string {
	return fmt.Sprintf("%s/reset-password?c=%s&e=%s",
		m.baseURL, url.QueryEscape(plaintextToken), url.QueryEscape(email))
}

func (m *Mailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending %q mail to %s: %w", subject, to, err)
	}
	return nil
}
