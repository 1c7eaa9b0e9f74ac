package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vibast-solutions/ms-go-blog-auth/app/mail"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Consume queued recovery mails and send them over SMTP",
	Args:  cobra.NoArgs,
	Run:   runMailWorker,
}

func init() {
	rootCmd.AddCommand(mailWorkerCmd)
}

func runMailWorker(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sender := mail.NewSMTPMailer(cfg.Mail.SMTP, cfg.OTP.TTL)
	worker := mail.NewWorker(cfg.Mail.AMQPURL, cfg.Mail.Queue, sender)

	logrus.WithField("queue", cfg.Mail.Queue).Info("Starting mail worker")
	if err = worker.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("Mail worker stopped")
	}
	logrus.Info("Mail worker stopped")
}
