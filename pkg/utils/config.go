package utils

import (
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Gateway   GatewayConfig
	Email     EmailConfig
	Reconcile ReconcileConfig
	Sweep     SweepConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type GatewayConfig struct {
	KeyID          string
	KeySecret      string
	WebhookSecret  string
	TimeoutSeconds int
}

type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type ReconcileConfig struct {
	MaxAttempts   int
	BackoffMillis int
}

type SweepConfig struct {
	IntervalMinutes     int
	PendingAfterSeconds int
	IdemRetentionDays   int
	NotifyRetries       int
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)
	viper.SetDefault("RECONCILE_MAX_ATTEMPTS", 3)
	viper.SetDefault("RECONCILE_BACKOFF_MILLIS", 50)
	viper.SetDefault("SWEEP_INTERVAL_MINUTES", 5)
	viper.SetDefault("SWEEP_PENDING_AFTER_SECONDS", 60)
	viper.SetDefault("IDEMPOTENCY_RETENTION_DAYS", 30)
	viper.SetDefault("NOTIFY_RETRIES", 2)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Gateway: GatewayConfig{
			KeyID:          viper.GetString("GATEWAY_KEY_ID"),
			KeySecret:      viper.GetString("GATEWAY_KEY_SECRET"),
			WebhookSecret:  viper.GetString("GATEWAY_WEBHOOK_SECRET"),
			TimeoutSeconds: viper.GetInt("GATEWAY_TIMEOUT_SECONDS"),
		},
		Email: EmailConfig{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			User:     viper.GetString("SMTP_USER"),
			Password: viper.GetString("SMTP_PASS"),
			From:     viper.GetString("EMAIL_FROM"),
		},
		Reconcile: ReconcileConfig{
			MaxAttempts:   viper.GetInt("RECONCILE_MAX_ATTEMPTS"),
			BackoffMillis: viper.GetInt("RECONCILE_BACKOFF_MILLIS"),
		},
		Sweep: SweepConfig{
			IntervalMinutes:     viper.GetInt("SWEEP_INTERVAL_MINUTES"),
			PendingAfterSeconds: viper.GetInt("SWEEP_PENDING_AFTER_SECONDS"),
			IdemRetentionDays:   viper.GetInt("IDEMPOTENCY_RETENTION_DAYS"),
			NotifyRetries:       viper.GetInt("NOTIFY_RETRIES"),
		},
	}

	return config, nil
}
