package cmd

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vibast-solutions/ms-go-blog-auth/app/controller"
	"github.com/vibast-solutions/ms-go-blog-auth/app/mail"
	"github.com/vibast-solutions/ms-go-blog-auth/app/middleware"
	"github.com/vibast-solutions/ms-go-blog-auth/app/repository"
	"github.com/vibast-solutions/ms-go-blog-auth/app/service"
	"github.com/vibast-solutions/ms-go-blog-auth/config"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the blog authentication service together with the expired-row janitor.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// services is the wired application graph shared by serve and the admin
// commands.
type services struct {
	sessions service.SessionService
	users    service.UserService
	janitor  *service.Janitor
	closers  []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logrus.WithError(err).Warn("Failed to release resource")
		}
	}
}

func buildServices(ctx context.Context, cfg *config.Config, db *sql.DB, withMail bool) (*services, error) {
	svc := &services{}

	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	svc.janitor = service.NewJanitor(cfg.Janitor.Interval).Register("refresh_tokens", refreshTokenRepo)

	var codeRepo service.CodeRepository
	switch cfg.OTP.Store {
	case config.OTPStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		svc.closers = append(svc.closers, client.Close)
		codeRepo = repository.NewRedisOneTimeCodeRepository(client, cfg.Redis.Prefix)
	default:
		mysqlCodes := repository.NewOneTimeCodeRepository(db)
		svc.janitor.Register("one_time_codes", mysqlCodes)
		codeRepo = mysqlCodes
	}

	var mailer mail.Mailer = mail.NewLogMailer()
	if withMail {
		var err error
		if mailer, err = newMailer(cfg, svc); err != nil {
			svc.Close()
			return nil, err
		}
	}

	hasher := service.NewBcryptHasher(cfg.Password.BcryptCost)
	codes := service.NewOneTimeCodeStore(codeRepo, cfg.OTP.TTL)
	tokens := service.NewTokenIssuer(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	svc.sessions = service.NewSessionService(userRepo, refreshTokenRepo, codes, tokens, hasher, mailer,
		service.WithPasswordMinLength(cfg.Password.MinLength))
	svc.users = service.NewUserService(userRepo, refreshTokenRepo, codes, hasher,
		service.WithUserPasswordMinLength(cfg.Password.MinLength))

	return svc, nil
}

// newMailer dials the broker for the queue transport; the publisher is
// released with the rest of svc.
func newMailer(cfg *config.Config, svc *services) (mail.Mailer, error) {
	switch cfg.Mail.Transport {
	case config.MailTransportSMTP:
		return mail.NewSMTPMailer(cfg.Mail.SMTP, cfg.OTP.TTL), nil
	case config.MailTransportQueue:
		publisher, err := mail.DialPublisher(cfg.Mail.AMQPURL, cfg.Mail.Queue)
		if err != nil {
			return nil, err
		}
		svc.closers = append(svc.closers, publisher.Close)
		return mail.NewQueueMailer(publisher), nil
	default:
		return mail.NewLogMailer(), nil
	}
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := loadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg, db, true)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build services")
	}
	defer svc.Close()

	go svc.janitor.Run(ctx)

	e := newHTTPServer(cfg, svc)
	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":      httpAddr,
			"otp_store": cfg.OTP.Store,
			"mail":      cfg.Mail.Transport,
		}).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}
}

func newHTTPServer(cfg *config.Config, svc *services) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.HTTP.RequestTimeout
	e.Server.WriteTimeout = cfg.HTTP.RequestTimeout + 5*time.Second

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.AllowOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, middleware.TokenHeader},
		AllowCredentials: true,
	}))
	e.Use(echomiddleware.ContextTimeout(cfg.HTTP.RequestTimeout))

	controller.RegisterRoutes(e,
		controller.NewSessionController(svc.sessions, cfg.Cookie, cfg.JWT.RefreshTokenTTL),
		controller.NewUserController(svc.users),
		middleware.NewAuthMiddleware(svc.sessions, svc.users),
	)

	return e
}
