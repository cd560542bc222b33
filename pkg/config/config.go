package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BAIRD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "BAIRD_APP_ENV"
	EnvPort      = "BAIRD_APP_PORT"
	EnvDBDSN     = "BAIRD_DB_DSN"
	EnvDBHost    = "BAIRD_DB_HOST"
	EnvDBUser    = "BAIRD_DB_USER"
	EnvDBName    = "BAIRD_DB_NAME"
	EnvRedisURL  = "BAIRD_REDIS_URL"
	EnvWAPhoneID = "BAIRD_WHATSAPP_PHONE_ID"
	EnvWAToken   = "BAIRD_WHATSAPP_API_TOKEN"
	EnvWASecret  = "BAIRD_WHATSAPP_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	WhatsApp     WhatsAppConfig
	Dispatch     DispatchConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAIRD_APP_ENV" required:"true"`
	Port         string `envconfig:"BAIRD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAIRD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAIRD_LOG_WARN_STACK" default:"false"`
	PublicURL    string `envconfig:"BAIRD_APP_PUBLIC_URL" default:"https://baird.app"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AcceptanceURL builds the public link a technician follows to accept an offer.
func (a AppConfig) AcceptanceURL(token string) string {
	base := strings.TrimRight(strings.TrimSpace(a.PublicURL), "/")
	if base == "" {
		base = "https://baird.app"
	}
	return base + "/aceptar/" + url.PathEscape(token)
}

type DBConfig struct {
	DSN string `envconfig:"BAIRD_DB_DSN"`

	LegacyHost     string `envconfig:"BAIRD_DB_HOST"`
	LegacyPort     int    `envconfig:"BAIRD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAIRD_DB_USER"`
	LegacyPassword string `envconfig:"BAIRD_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAIRD_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAIRD_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAIRD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAIRD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAIRD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAIRD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAIRD_REDIS_URL"`
	Address      string        `envconfig:"BAIRD_REDIS_ADDR"`
	Password     string        `envconfig:"BAIRD_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAIRD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAIRD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAIRD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAIRD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAIRD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAIRD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// WhatsAppConfig carries Cloud API credentials and webhook secrets.
type WhatsAppConfig struct {
	APIBase            string        `envconfig:"BAIRD_WHATSAPP_API_BASE" default:"https://graph.facebook.com/v21.0"`
	PhoneID            string        `envconfig:"BAIRD_WHATSAPP_PHONE_ID"`
	APIToken           string        `envconfig:"BAIRD_WHATSAPP_API_TOKEN"`
	CountryCode        string        `envconfig:"BAIRD_WHATSAPP_COUNTRY_CODE" default:"57"`
	SendTimeout        time.Duration `envconfig:"BAIRD_WHATSAPP_SEND_TIMEOUT" default:"10s"`
	WebhookSecret      string        `envconfig:"BAIRD_WHATSAPP_WEBHOOK_SECRET"`
	WebhookVerifyToken string        `envconfig:"BAIRD_WHATSAPP_WEBHOOK_VERIFY_TOKEN"`
	WebhookDedupeTTL   time.Duration `envconfig:"BAIRD_WHATSAPP_WEBHOOK_DEDUPE_TTL" default:"24h"`
}

// DispatchConfig tunes fan-out and message previews.
type DispatchConfig struct {
	Concurrency        int `envconfig:"BAIRD_DISPATCH_CONCURRENCY" default:"8"`
	OfferPreviewChars  int `envconfig:"BAIRD_PREVIEW_OFFER_CHARS" default:"120"`
	WinnerPreviewChars int `envconfig:"BAIRD_PREVIEW_WINNER_CHARS" default:"150"`
	PagePreviewChars   int `envconfig:"BAIRD_PREVIEW_PAGE_CHARS" default:"200"`
}

type RateLimitConfig struct {
	AcceptWindow  time.Duration `envconfig:"BAIRD_RATE_LIMIT_ACCEPT_WINDOW" default:"1m"`
	AcceptIPLimit int           `envconfig:"BAIRD_RATE_LIMIT_ACCEPT_IP_LIMIT" default:"30"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"BAIRD_CORS_ALLOWED_ORIGINS" default:"https://baird.app,http://localhost:3000"`
}

type CronConfig struct {
	Interval       time.Duration `envconfig:"BAIRD_CRON_INTERVAL" default:"10m"`
	ReconcileGrace time.Duration `envconfig:"BAIRD_CRON_RECONCILE_GRACE" default:"2m"`
	ReconcileBatch int           `envconfig:"BAIRD_CRON_RECONCILE_BATCH" default:"500"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAIRD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
