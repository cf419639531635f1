package mail

import (
	"gopkg.in/gomail.v2"
)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether SMTP settings are present. An unconfigured
// mailer is a valid deployment; notification sends are skipped.
func (m *Mailer) Configured() bool {
	return m != nil && m.Host != "" && m.From != ""
}

// Send delivers one message. No retry contract; callers treat failures as
// log-only.
func (m *Mailer) Send(to, subject, htmlBody, textBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)
	if htmlBody != "" {
		msg.AddAlternative("text/html", htmlBody)
	}

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return d.DialAndSend(msg)
}
