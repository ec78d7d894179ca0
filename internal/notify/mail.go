// Package notify sends recorded events out of the box, by e-mail.
package notify

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/cjeanneret/lvs/internal/config"
	"github.com/cjeanneret/lvs/internal/debug"
	"github.com/cjeanneret/lvs/internal/eventlog"
)

// Mailer sends one message per event through an SMTP server.
type Mailer struct {
	from string
	to   []string
	send func(m ...*gomail.Message) error
}

// NewMailer creates a mailer from the notify configuration.
func NewMailer(cfg config.NotifyConfig) *Mailer {
	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password)
	return &Mailer{
		from: cfg.From,
		to:   cfg.To,
		send: d.DialAndSend,
	}
}

// Message builds the mail for rec. The image is attached when it exists on disk.
func (m *Mailer) Message(rec eventlog.Record) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", m.to...)
	msg.SetHeader("Subject", fmt.Sprintf("[lvs] %s: %s", rec.Type, rec.Description))

	var body strings.Builder
	fmt.Fprintf(&body, "Event:       %s\n", rec.Type)
	fmt.Fprintf(&body, "Description: %s\n", rec.Description)
	fmt.Fprintf(&body, "Time:        %s\n", rec.Timestamp)
	if img := rec.ImagePath(); img != "" {
		fmt.Fprintf(&body, "Image:       %s\n", img)
	} else {
		body.WriteString("Image:       none\n")
	}
	if rec.ID != "" {
		fmt.Fprintf(&body, "ID:          %s\n", rec.ID)
	}
	msg.SetBody("text/plain", body.String())

	if img := rec.ImagePath(); img != "" {
		if _, err := os.Stat(img); err == nil {
			msg.Attach(img)
		} else {
			debug.Verbose("Notify: not attaching %s: %v", img, err)
		}
	}
	return msg
}

// Notify sends the mail for rec.
func (m *Mailer) Notify(rec eventlog.Record) error {
	if err := m.send(m.Message(rec)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	debug.Live("Notification sent to %s", strings.Join(m.to, ", "))
	return nil
}
