package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"pricewatch/internal/price"
	"pricewatch/pkg/apperr"
	"pricewatch/pkg/models"
	"pricewatch/pkg/utils"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends alerts as plain-text email over SMTP.
type Mailer struct {
	Addr  string
	From  string
	Auth  smtp.Auth
	Codec *price.Codec

	send sendFunc
}

func NewMailer(cfg utils.NotifyConfig, codec *price.Codec) *Mailer {
	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return &Mailer{
		Addr:  net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		From:  cfg.From,
		Auth:  auth,
		Codec: codec,
		send:  smtp.SendMail,
	}
}

func (m *Mailer) Notify(ctx context.Context, alert models.Alert) error {
	if err := ctx.Err(); err != nil {
		return apperr.E(apperr.DeliveryError, "mail", err)
	}
	msg := Compose(m.Codec, alert)
	if msg.To == "" {
		return apperr.Errorf(apperr.DeliveryError, "mail", "alert %d has no recipient", alert.SubscriptionID)
	}

	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(m.Addr, m.Auth, m.From, []string{msg.To}, m.render(msg)); err != nil {
		return apperr.E(apperr.DeliveryError, "mail", fmt.Errorf("send to %s: %w", msg.To, err))
	}
	return nil
}

func (m *Mailer) render(n models.Notification) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.From)
	fmt.Fprintf(&b, "To: %s\r\n", n.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", n.Subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(n.Body, "\n", "\r\n"))
	return []byte(b.String())
}
