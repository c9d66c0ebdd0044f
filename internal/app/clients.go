package app

import (
	"fmt"
	"os"
	"strings"

	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/classweek-backend/internal/clients/redis"
	"github.com/yungbote/classweek-backend/internal/platform/gcp"
	"github.com/yungbote/classweek-backend/internal/platform/logger"
	"github.com/yungbote/classweek-backend/internal/platform/sendgrid"
	"github.com/yungbote/classweek-backend/internal/platform/twilio"
	"github.com/yungbote/classweek-backend/internal/services"
	"github.com/yungbote/classweek-backend/internal/temporalx"
)

type Clients struct {
	Bucket   gcp.BucketService
	Locker   services.KeyLocker
	Twilio   twilio.Client
	SendGrid sendgrid.Client
	Temporal temporalsdkclient.Client

	TemporalConfig temporalx.Config
	redisLocker    *redis.Locker
}

type clientNeeds struct {
	bucket   bool
	senders  bool
	temporal bool
}

func wireClients(log *logger.Logger, cfg Config, needs clientNeeds) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{TemporalConfig: temporalx.LoadConfig()}

	// Redis
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		l, err := redis.NewLocker(log, redis.LockerConfigFromEnv())
		if err != nil {
			return nil, fmt.Errorf("init redis locker: %w", err)
		}
		c.redisLocker = l
		c.Locker = l
	} else {
		log.Info("REDIS_ADDR not set; using in-process locks")
		c.Locker = services.NewLocalLocker()
	}

	// Gcs
	if needs.bucket {
		bucket, err := resolveBucketService(log)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init bucket client: %w", err)
		}
		c.Bucket = bucket
	}

	// Twilio / SendGrid
	if needs.senders {
		if tw, err := twilio.NewFromEnv(log); err != nil {
			log.Warn("WhatsApp channel disabled", "error", err)
		} else {
			c.Twilio = tw
		}
		if sg, err := sendgrid.NewFromEnv(log); err != nil {
			log.Warn("E-mail channel disabled", "error", err)
		} else {
			c.SendGrid = sg
		}
	}

	// Temporal
	if needs.temporal || cfg.Async == AsyncTemporal {
		if !c.TemporalConfig.Enabled() {
			c.Close()
			return nil, fmt.Errorf("temporal async mode requires TEMPORAL_ADDRESS")
		}
		tc, err := temporalx.NewClient(log, c.TemporalConfig)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init temporal client: %w", err)
		}
		c.Temporal = tc
	}
	return c, nil
}

// Senders returns the guardian channels in preference order: WhatsApp, then e-mail.
func (c *Clients) Senders() []services.NotificationSender {
	var out []services.NotificationSender
	if c.Twilio != nil {
		out = append(out, services.NewWhatsAppSender(c.Twilio))
	}
	if c.SendGrid != nil {
		out = append(out, services.NewEmailSender(c.SendGrid))
	}
	return out
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.redisLocker != nil {
		_ = c.redisLocker.Close()
	}
}
