package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	usecase "github.com/verra-health/identity-api/internal/usecase/auth"
)

// Config holds SMTP connection settings.
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	AppName   string
	OTPWindow time.Duration
}

// SMTPMailer delivers verification codes over SMTP. Port 465 uses implicit
// TLS; other ports upgrade via STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg Config
}

// NewSMTPMailer constructs a mailer with the provided settings.
func NewSMTPMailer(cfg Config) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

var _ usecase.Mailer = (*SMTPMailer)(nil)

// SendOTP emails a verification code to the given address.
func (m *SMTPMailer) SendOTP(ctx context.Context, email, fullName, code string) error {
	subject := fmt.Sprintf("%s - Email Verification OTP", m.cfg.AppName)
	body := otpMessageBody(m.cfg.AppName, fullName, code, m.cfg.OTPWindow)
	message := buildMessage(m.cfg.From, email, subject, body)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	client, err := m.dial(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(parseAddress(m.cfg.From)); err != nil {
		return err
	}
	if err := client.Rcpt(email); err != nil {
		return err
	}
	writer, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := writer.Write([]byte(message)); err != nil {
		_ = writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (m *SMTPMailer) dial(addr string) (*smtp.Client, error) {
	if m.cfg.Port == 465 {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.Host})
		if err != nil {
			return nil, err
		}
		return smtp.NewClient(conn, m.cfg.Host)
	}

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		return nil, err
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

func buildMessage(from, to, subject, body string) string {
	headers := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		body,
	}
	return strings.Join(headers, "\r\n")
}

func parseAddress(from string) string {
	start := strings.Index(from, "<")
	end := strings.Index(from, ">")
	if start >= 0 && end > start {
		return strings.TrimSpace(from[start+1 : end])
	}
	return strings.TrimSpace(from)
}
