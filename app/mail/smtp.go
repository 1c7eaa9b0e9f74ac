package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/config"

	"github.com/sirupsen/logrus"
)

const (
	smtpDialTimeout    = 8 * time.Second
	smtpSessionTimeout = 15 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

var recoveryTemplate = template.Must(template.ParseFS(templateFS, "templates/recovery_code.html"))

type SMTPMailer struct {
	cfg      config.SMTPConfig
	codeTTL  time.Duration
	dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewSMTPMailer(cfg config.SMTPConfig, codeTTL time.Duration) *SMTPMailer {
	dialer := &net.Dialer{Timeout: smtpDialTimeout}
	return &SMTPMailer{
		cfg:      cfg,
		codeTTL:  codeTTL,
		dialFunc: dialer.DialContext,
	}
}

func (m *SMTPMailer) SendRecoveryCode(ctx context.Context, to, code string) error {
	msg, err := m.buildMessage(to, code)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, m.cfg.Port)
	logrus.WithFields(logrus.Fields{
		"to":   to,
		"smtp": addr,
	}).Debug("Sending recovery code")

	if err = m.send(ctx, addr, to, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", addr, err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(to, code string) ([]byte, error) {
	var body bytes.Buffer
	err := recoveryTemplate.Execute(&body, map[string]interface{}{
		"Subject":      m.cfg.Subject,
		"Code":         code,
		"ValidMinutes": int(m.codeTTL / time.Minute),
	})
	if err != nil {
		return nil, err
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", m.cfg.Subject),
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		body.String(),
	}, "\r\n")
	return []byte(msg), nil
}

func (m *SMTPMailer) send(ctx context.Context, addr, to string, msg []byte) error {
	conn, err := m.dialFunc(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(smtpSessionTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = conn.SetDeadline(deadline)

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() { _ = c.Quit() }()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err = c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}

	if m.cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
			if err = c.Auth(auth); err != nil {
				return err
			}
		}
	}

	if err = c.Mail(m.cfg.From); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
