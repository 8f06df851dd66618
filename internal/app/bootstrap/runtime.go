package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/aws/aws-sdk-go-v2/aws"
	appconfig "github.com/harborgate/site-api/internal/config"
	"github.com/harborgate/site-api/internal/notify"
	"github.com/harborgate/site-api/pkg/logging"
)

// BuildPgxPool connects to Postgres or returns nil when no DATABASE_URL is
// configured. When verify is true, a ping is issued and failures return nil
// so the service can boot degraded.
func BuildPgxPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *pgxpool.Pool {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		return nil
	}
	if verify {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database not available", "error", err)
		}
	}
	return pool
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures are logged but the
// client is kept so the health endpoint can report recovery.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if verify {
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not available", "error", err)
		}
	}
	return client
}

// LoadAWSConfig builds the shared AWS SDK config, honoring static
// credentials and an endpoint override for local stacks.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// BuildS3Client returns an S3 client, pointing at the endpoint override
// when one is configured (MinIO, localstack).
func BuildS3Client(awsCfg aws.Config, cfg *appconfig.Config) *s3.Client {
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointOverride != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointOverride)
			o.UsePathStyle = true
		}
	})
}

// BuildEmailSender picks the email variant from configuration: SendGrid,
// SES, or the disabled no-op.
func BuildEmailSender(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: firstNonEmpty(cfg.SendGridFromEmail, cfg.NotifyFromEmail),
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	case "ses":
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: firstNonEmpty(cfg.SESFromEmail, cfg.NotifyFromEmail),
			FromName:  cfg.NotifyFromName,
		}, logger)
		if sender != nil {
			return sender
		}
	}
	return notify.NewDisabledSender(logger)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
