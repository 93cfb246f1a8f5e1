package mainconfig

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-scheduling-platform/internal/config"
	"github.com/wolfman30/clinic-scheduling-platform/internal/notify"
	"github.com/wolfman30/clinic-scheduling-platform/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so the API server and the
// dispatch worker share the same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}

	if endpoint := cfg.AWSEndpointOverride; endpoint != "" {
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
				switch service {
				case sesv2.ServiceID:
					return aws.Endpoint{
						URL:           endpoint,
						PartitionID:   "aws",
						SigningRegion: cfg.AWSRegion,
					}, nil
				default:
					return aws.Endpoint{}, &aws.EndpointNotFoundError{}
				}
			},
		)
	}

	return awsCfg, nil
}

// BuildNotifySender assembles the channel router from whatever sinks are
// configured. Unconfigured channels fall back to the logging stub outside
// production so booking flows stay testable end to end.
func BuildNotifySender(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) notify.Sender {
	stub := notify.NewStubSender(logger)
	var email, sms, push notify.Sender

	switch cfg.EmailProvider {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); s != nil {
			email = s
		}
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config, email disabled", "error", err)
			break
		}
		if s := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); s != nil {
			email = s
		}
	}

	if cfg.SMSGatewayURL != "" {
		s, err := notify.NewSMSGatewaySender(notify.SMSGatewayConfig{
			BaseURL:    cfg.SMSGatewayURL,
			APIKey:     cfg.SMSGatewayAPIKey,
			FromNumber: cfg.SMSFromNumber,
			Timeout:    cfg.SendTimeout,
		}, logger)
		if err != nil {
			logger.Error("sms gateway misconfigured, sms disabled", "error", err)
		} else {
			sms = s
		}
	}

	if cfg.PushGatewayURL != "" {
		p, err := notify.NewPushGatewaySender(notify.PushGatewayConfig{
			BaseURL: cfg.PushGatewayURL,
			APIKey:  cfg.PushGatewayAPIKey,
			Timeout: cfg.SendTimeout,
		}, logger)
		if err != nil {
			logger.Error("push gateway misconfigured, push disabled", "error", err)
		} else {
			push = p
		}
	}

	if cfg.Env != "production" {
		if email == nil {
			email = stub
		}
		if sms == nil {
			sms = stub
		}
		if push == nil {
			push = stub
		}
	}
	return notify.NewRouter(email, sms, push, logger)
}

// ConnectRedis opens the optional Redis client backing the dispatch cycle
// lock. Returns nil, and logs, when Redis is absent or unreachable; dispatch
// works without it.
func ConnectRedis(cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, dispatch cycle lock disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
