package mailing

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"

	"splay/internal/utils"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type MailConfig struct {
	AppURL       string
	SMTPHost     string
	SMTPPort     string
	SMTPSender   string
	SMTPEmail    string
	SMTPPassword string
}

// Mailer delivers transactional email.
type Mailer interface {
	SendMail(toEmail string, subject string, body string) error
	AppURL() string
}

type (
	smtpMailer struct {
		config MailConfig
	}

	logMailer struct {
		appURL string
		logger *zap.Logger
	}
)

func LoadMailConfig() MailConfig {
	return MailConfig{
		AppURL:       utils.GetConfig("APP_URL"),
		SMTPHost:     utils.GetConfig("SMTP_HOST"),
		SMTPPort:     utils.GetConfig("SMTP_PORT"),
		SMTPSender:   utils.GetConfig("SMTP_SENDER_NAME"),
		SMTPEmail:    utils.GetConfig("SMTP_AUTH_EMAIL"),
		SMTPPassword: utils.GetConfig("SMTP_AUTH_PASSWORD"),
	}
}

// NewMailer returns an SMTP mailer when SMTP_HOST is configured and a mailer
// that only logs otherwise.
func NewMailer(config MailConfig, logger *zap.Logger) Mailer {
	if config.SMTPHost == "" {
		return &logMailer{appURL: config.AppURL, logger: logger}
	}
	return &smtpMailer{config: config}
}

func (m *smtpMailer) AppURL() string {
	return m.config.AppURL
}

func (m *smtpMailer) SendMail(toEmail string, subject string, body string) error {
	mailer := gomail.NewMessage()
	if m.config.SMTPSender != "" {
		mailer.SetAddressHeader("From", m.config.SMTPEmail, m.config.SMTPSender)
	} else {
		mailer.SetHeader("From", m.config.SMTPEmail)
	}
	mailer.SetHeader("To", toEmail)
	mailer.SetHeader("Subject", subject)
	mailer.SetBody("text/html", body)
	port, err := strconv.Atoi(m.config.SMTPPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP_PORT %q: %w", m.config.SMTPPort, err)
	}
	dialer := gomail.NewDialer(
		m.config.SMTPHost,
		port,
		m.config.SMTPEmail,
		m.config.SMTPPassword,
	)

	if err := dialer.DialAndSend(mailer); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}

	return nil
}

func (m *logMailer) AppURL() string {
	return m.appURL
}

func (m *logMailer) SendMail(toEmail string, subject string, body string) error {
	m.logger.Info("smtp not configured, mail not sent",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}

var verificationTemplate = template.Must(template.New("verify").Parse(`<p>Hi {{.Name}},</p>
<p>Confirm your Splay account by opening the link below:</p>
<p><a href="{{.Link}}">{{.Link}}</a></p>
<p>The link expires in 24 hours.</p>`))

func VerificationEmail(name, link string) (string, error) {
	var buf bytes.Buffer
	err := verificationTemplate.Execute(&buf, struct {
		Name string
		Link string
	}{name, link})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
