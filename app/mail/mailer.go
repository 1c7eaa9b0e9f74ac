// Package mail delivers password recovery codes, either straight over SMTP or
// through a RabbitMQ queue drained by the mail worker.
package mail

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Mailer is satisfied by every transport below.
type Mailer interface {
	SendRecoveryCode(ctx context.Context, to, code string) error
}

// RecoveryMail is the queued message body.
type RecoveryMail struct {
	To          string    `json:"to"`
	Code        string    `json:"code"`
	RequestedAt time.Time `json:"requestedAt"`
}

// LogMailer writes the code to the log instead of sending it. Development only.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) SendRecoveryCode(_ context.Context, to, code string) error {
	logrus.WithFields(logrus.Fields{
		"to":   to,
		"code": code,
	}).Warn("Mail transport is log; recovery code not sent")
	return nil
}
