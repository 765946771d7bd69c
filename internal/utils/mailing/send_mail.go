package mailing

import (
	"gopkg.in/gomail.v2"
)

type (
	Mailer interface {
		SendMail(toEmail string, subject string, body string) error
	}

	MailConfig struct {
		SMTPHost     string
		SMTPPort     int
		SMTPSender   string
		SMTPEmail    string
		SMTPPassword string
	}

	mailer struct {
		config MailConfig
	}
)

func NewMailer(config MailConfig) Mailer {
	return &mailer{config: config}
}

func (m *mailer) SendMail(toEmail string, subject string, body string) error {
	message := gomail.NewMessage()
	message.SetHeader("From", m.config.SMTPEmail)
	message.SetHeader("To", toEmail)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", body)

	dialer := gomail.NewDialer(
		m.config.SMTPHost,
		m.config.SMTPPort,
		m.config.SMTPEmail,
		m.config.SMTPPassword,
	)

	return dialer.DialAndSend(message)
}
