package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// Payment webhook settings. The shared-secret token is either set
	// directly via WEBHOOK_TOKEN or fetched from Secret Manager when
	// WEBHOOK_TOKEN_SECRET_NAME is set.
	WebhookToken           string `envconfig:"WEBHOOK_TOKEN"`
	WebhookTokenSecretName string `envconfig:"WEBHOOK_TOKEN_SECRET_NAME"`
	PaymentProviderName    string `envconfig:"PAYMENT_PROVIDER_NAME" default:"kiwify"`
	AnnualPlanKeywords     string `envconfig:"ANNUAL_PLAN_KEYWORDS" default:"anual,annual,12 meses,yearly"`

	// GCP settings
	GCPProjectID                  string `envconfig:"GCP_PROJECT_ID"`
	PaymentEventsTopic            string `envconfig:"PAYMENT_EVENTS_TOPIC" default:"payment_events"`
	PubSubEmulatorHost            string `envconfig:"PUBSUB_EMULATOR_HOST"`
	DLQEndpointURL                string `envconfig:"DLQ_ENDPOINT_URL"`
	PubSubPushServiceAccountEmail string `envconfig:"PUBSUB_PUSH_SERVICE_ACCOUNT_EMAIL"`

	// Receipt storage (S3-compatible)
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Receipt extraction service settings
	ExtractionServiceBaseURL string `envconfig:"EXTRACTION_SERVICE_BASE_URL" required:"true"`

	// Redis (gamification leaderboard)
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Transactional email
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	EmailFrom      string `envconfig:"EMAIL_FROM" default:"no-reply@finz.app"`
	EmailFromName  string `envconfig:"EMAIL_FROM_NAME" default:"Finz"`

	// Pending-claim reconciler settings
	PendingClaimQueueName           string `envconfig:"PENDING_CLAIM_QUEUE_NAME" default:"pending_claim_queue"`
	PendingClaimPollTimeoutSec      int    `envconfig:"PENDING_CLAIM_POLL_TIMEOUT_SEC" default:"30"`
	PendingClaimPollMaxMsg          int    `envconfig:"PENDING_CLAIM_POLL_MAX_MSG" default:"1"`
	PendingClaimMaxRetries          int    `envconfig:"PENDING_CLAIM_MAX_RETRIES" default:"5"`
	PendingClaimBackoffInitialSec   int    `envconfig:"PENDING_CLAIM_BACKOFF_INITIAL_SEC" default:"1"`
	PendingClaimBackoffMaxSec       int    `envconfig:"PENDING_CLAIM_BACKOFF_MAX_SEC" default:"60"`
	PendingClaimDeadLetterQueueName string `envconfig:"PENDING_CLAIM_DEAD_LETTER_QUEUE_NAME" default:"pending_claim_queue_dlq"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AnnualKeywords returns the configured "annual plan" indicator substrings,
// lowercased and trimmed.
func (c *Config) AnnualKeywords() []string {
	parts := strings.Split(c.AnnualPlanKeywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}
