package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Notifier delivers plain text alerts to staff.
type Notifier interface {
	Notify(subject, body string) error
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
	to     string
}

func NewMailer(host string, port int, user, password, from, to string) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		to:     to,
	}
}

func (m *Mailer) Notify(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

// Nop drops every alert.
type Nop struct{}

func (Nop) Notify(string, string) error { return nil }
