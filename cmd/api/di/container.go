package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-onboarding-service/cmd/api/infrastructure"
	"user-onboarding-service/internal/adapter/cache"
	"user-onboarding-service/internal/adapter/db/postgres"
	ginhandler "user-onboarding-service/internal/adapter/gin/handler"
	ginmiddleware "user-onboarding-service/internal/adapter/gin/middleware"
	ginrouter "user-onboarding-service/internal/adapter/gin/router"
	"user-onboarding-service/internal/adapter/grpc/middleware"
	"user-onboarding-service/internal/adapter/mail"
	"user-onboarding-service/internal/adapter/repository/cached"
	"user-onboarding-service/internal/config"
	"user-onboarding-service/internal/usecase/user"
	redisclient "user-onboarding-service/pkg/redis"
	"user-onboarding-service/pkg/workerpool"
)

const (
	outboxMaxLen    = 10000
	mailQueuePerWkr = 16
	mailStopTimeout = 5 * time.Second
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	RedisClient *redisclient.Client
	Registry    *prometheus.Registry
	MailPool    *workerpool.Pool
	Mailer      user.EmailService
	UserUC      user.Usecase
	RateLimiter *middleware.RateLimiter
	GinHandler  *ginhandler.UserHandler
	RouterOpts  ginrouter.Options
}

// NewContainer validates cfg and wires every dependency. Building the user
// service sends the welcome mail, so a mail failure aborts startup.
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (_ *Container, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}
	defer func() {
		if err != nil {
			if cerr := c.Close(); cerr != nil {
				l.Warn("cleanup after failed start", zap.Error(cerr))
			}
		}
	}()

	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.DB, err = infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c.RedisClient, err = infrastructure.NewRedisClient(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	userCache := cache.NewRedisUserCache(
		c.RedisClient.Client,
		time.Duration(cfg.Redis.CacheTTL)*time.Second,
		l,
	)
	repo := cached.NewUserRepository(postgres.NewUserRepoPG(c.DB, l), userCache, l)

	c.Mailer, err = c.newMailer()
	if err != nil {
		return nil, err
	}

	userUC, err := user.New(ctx, repo, c.Mailer, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize user service: %w", err)
	}
	c.UserUC = userUC

	c.RateLimiter = middleware.NewRateLimiter(
		c.RedisClient.Client,
		middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			WindowSeconds:     cfg.RateLimit.WindowSeconds,
			Enabled:           cfg.RateLimit.Enabled,
		},
		l,
	)

	c.GinHandler = ginhandler.NewUserHandler(userUC, l)
	c.RouterOpts = ginrouter.Options{
		ServiceName: cfg.Logger.ServiceName,
		Redis:       c.RedisClient.Client,
		Gatherer:    c.Registry,
		HealthChecks: map[string]ginrouter.HealthCheck{
			"redis":    c.RedisClient.HealthCheck,
			"database": c.pingDatabase,
		},
		RateLimit: ginmiddleware.TokenBucketConfig{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstCapacity:     cfg.RateLimit.BurstCapacity,
		},
	}

	return c, nil
}

func (c *Container) pingDatabase(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// newMailer builds the welcome mailer for the configured mode.
func (c *Container) newMailer() (*mail.WelcomeMailer, error) {
	cfg := c.Config

	var sender mail.Sender
	switch cfg.Mail.Mode {
	case "smtp":
		pool, err := workerpool.New(
			cfg.Mail.Workers,
			cfg.Mail.Workers*mailQueuePerWkr,
			workerpool.NewMetrics(c.Registry, "mail"),
			c.Logger,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to start mail workers: %w", err)
		}
		c.MailPool = pool

		smtpSender := mail.NewSMTPSender(mail.SMTPConfig{
			Addr:     cfg.Mail.SMTPAddr(),
			Username: cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
		}, c.Logger)
		sender = mail.NewAsyncSender(smtpSender, pool, c.Logger)
	default:
		sender = mail.NewOutboxSender(c.RedisClient.Client, cfg.Mail.OutboxStream, outboxMaxLen, c.Logger)
	}

	c.Logger.Info("mailer configured", zap.String("mode", cfg.Mail.Mode))

	return mail.NewWelcomeMailer(mail.WelcomeConfig{
		To:      cfg.Mail.WelcomeTo,
		Subject: cfg.Mail.Subject,
		Service: cfg.Logger.ServiceName,
		Version: cfg.Logger.ServiceVersion,
	}, sender, c.Logger), nil
}

// Close releases resources in reverse order of creation. Queued mail is
// flushed before Redis and the database go away.
func (c *Container) Close() error {
	var errs []error

	if c.MailPool != nil {
		if err := c.MailPool.Stop(mailStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop mail workers: %w", err))
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
