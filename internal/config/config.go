package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port, LogLevel string }
type DBCfg struct{ DSN string }
type MongoCfg struct{ URI, Database string }

type RedisCfg struct {
	Addr     string
	DedupTTL time.Duration
}

type NotifyCfg struct {
	Brokers         []string
	Queue           string
	Timeout         time.Duration
	IncludeContacts bool
	IncludeProducts bool
}

type GatewayCfg struct {
	SecretKey   string
	BaseURL     string
	CallbackURL string
	Timeout     time.Duration
}

type PaymentCfg struct {
	Currency          string
	MinorUnitExponent int32
}

type ReconcileCfg struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
	Batch        int
}

type SecurityCfg struct {
	ServiceToken string // guards /api/v1
	AdminToken   string // guards /admin
}

type Cfg struct {
	App            AppCfg
	DB             DBCfg
	Mongo          MongoCfg
	Redis          RedisCfg
	Notify         NotifyCfg
	Gateway        GatewayCfg
	Payment        PaymentCfg
	Reconcile      ReconcileCfg
	Sec            SecurityCfg
	StartupMaxWait time.Duration
}

// Load reads .env (if present) and the environment, exiting on missing
// required settings.
func Load() Cfg {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	v := viper.New()
	v.AutomaticEnv()
	cfg, err := fromViper(v)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MONGO_DB", "ecommerce")
	v.SetDefault("WEBHOOK_DEDUP_TTL", "24h")
	v.SetDefault("NOTIFY_QUEUE", "payment.status")
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_INCLUDE_CONTACTS", true)
	v.SetDefault("NOTIFY_INCLUDE_PRODUCTS", true)
	v.SetDefault("PAYSTACK_BASE_URL", "https://api.paystack.co")
	v.SetDefault("GATEWAY_TIMEOUT", "15s")
	v.SetDefault("CURRENCY", "NGN")
	v.SetDefault("MINOR_UNIT_EXPONENT", 2)
	v.SetDefault("RECONCILE_POLL_INTERVAL", "1m")
	v.SetDefault("RECONCILE_STALE_AFTER", "15m")
	v.SetDefault("RECONCILE_BATCH", 50)
	v.SetDefault("STARTUP_MAX_WAIT", "30s")
}

func fromViper(v *viper.Viper) (Cfg, error) {
	setDefaults(v)

	cfg := Cfg{
		App: AppCfg{
			Env:      v.GetString("APP_ENV"),
			Port:     v.GetString("APP_PORT"),
			LogLevel: v.GetString("LOG_LEVEL"),
		},
		DB: DBCfg{DSN: strings.TrimSpace(v.GetString("DB_DSN"))},
		Mongo: MongoCfg{
			URI:      strings.TrimSpace(v.GetString("MONGO_URI")),
			Database: v.GetString("MONGO_DB"),
		},
		Redis: RedisCfg{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			DedupTTL: v.GetDuration("WEBHOOK_DEDUP_TTL"),
		},
		Notify: NotifyCfg{
			Brokers:         splitList(v.GetString("KAFKA_BROKERS")),
			Queue:           v.GetString("NOTIFY_QUEUE"),
			Timeout:         v.GetDuration("NOTIFY_TIMEOUT"),
			IncludeContacts: v.GetBool("NOTIFY_INCLUDE_CONTACTS"),
			IncludeProducts: v.GetBool("NOTIFY_INCLUDE_PRODUCTS"),
		},
		Gateway: GatewayCfg{
			SecretKey:   strings.TrimSpace(v.GetString("PAYSTACK_SECRET_KEY")),
			BaseURL:     v.GetString("PAYSTACK_BASE_URL"),
			CallbackURL: v.GetString("PAYSTACK_CALLBACK_URL"),
			Timeout:     v.GetDuration("GATEWAY_TIMEOUT"),
		},
		Payment: PaymentCfg{
			Currency:          strings.ToUpper(v.GetString("CURRENCY")),
			MinorUnitExponent: v.GetInt32("MINOR_UNIT_EXPONENT"),
		},
		Reconcile: ReconcileCfg{
			PollInterval: v.GetDuration("RECONCILE_POLL_INTERVAL"),
			StaleAfter:   v.GetDuration("RECONCILE_STALE_AFTER"),
			Batch:        v.GetInt("RECONCILE_BATCH"),
		},
		Sec: SecurityCfg{
			ServiceToken: strings.TrimSpace(v.GetString("SERVICE_TOKEN")),
			AdminToken:   strings.TrimSpace(v.GetString("ADMIN_TOKEN")),
		},
		StartupMaxWait: v.GetDuration("STARTUP_MAX_WAIT"),
	}

	// Fail fast on required settings
	switch {
	case cfg.DB.DSN == "":
		return Cfg{}, errors.New("DB_DSN is required")
	case cfg.Mongo.URI == "":
		return Cfg{}, errors.New("MONGO_URI is required")
	case cfg.Gateway.SecretKey == "":
		return Cfg{}, errors.New("PAYSTACK_SECRET_KEY is required")
	case len(cfg.Notify.Brokers) == 0:
		return Cfg{}, errors.New("KAFKA_BROKERS is required")
	case cfg.Payment.MinorUnitExponent < 0:
		return Cfg{}, errors.New("MINOR_UNIT_EXPONENT must not be negative")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// IsProduction reports whether the service runs with production settings.
func (c Cfg) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}
