package infra

import (
	"fmt"
	"net/smtp"

	"github.com/reinaldoagf/servimarket-back/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer delivers ticket receipts to buyers. The email worker calls it
// through the circuit breaker, so a dead relay fast-fails into the DLQ
// instead of stalling the pool.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	from     string
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		from:     fmt.Sprintf("ServiMarket <%s>", cfg.SMTPUser),
	}
}

// SendReceipt mails the ticket body with the rendered PDF attached.
// An empty pdfPath sends text only (PDF rendering failed upstream).
func (m *Mailer) SendReceipt(to, subject, body, pdfPath string) error {
	e := email.NewEmail()
	e.From = m.from
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach receipt pdf: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return e.Send(m.addr, auth)
}
