package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "edostavka"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Env var names reused by tests and bootstrap code.
const (
	EnvAppEnv         = "EDOSTAVKA_APP_ENV"
	EnvPort           = "EDOSTAVKA_APP_PORT"
	EnvRedisURL       = "EDOSTAVKA_REDIS_URL"
	EnvAirtableBaseID = "EDOSTAVKA_AIRTABLE_BASE_ID"
	EnvAirtableAPIKey = "EDOSTAVKA_AIRTABLE_API_KEY"
)

type Config struct {
	App      AppConfig
	Airtable AirtableConfig
	Redis    RedisConfig
	Cart     CartConfig
	Checkout CheckoutConfig
	Session  SessionConfig
	Sync     SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"EDOSTAVKA_APP_ENV" required:"true"`
	Port         string `envconfig:"EDOSTAVKA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EDOSTAVKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EDOSTAVKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AirtableConfig points the record client at the external tabular store.
// Table names default to the names of the production base.
type AirtableConfig struct {
	BaseURL string `envconfig:"EDOSTAVKA_AIRTABLE_BASE_URL" default:"https://api.airtable.com/v0"`
	BaseID  string `envconfig:"EDOSTAVKA_AIRTABLE_BASE_ID" required:"true"`
	APIKey  string `envconfig:"EDOSTAVKA_AIRTABLE_API_KEY" required:"true"`

	UsersTable         string `envconfig:"EDOSTAVKA_AIRTABLE_USERS_TABLE" default:"Table 1"`
	ProductsTable      string `envconfig:"EDOSTAVKA_AIRTABLE_PRODUCTS_TABLE" default:"catalog"`
	EmployeesTable     string `envconfig:"EDOSTAVKA_AIRTABLE_EMPLOYEES_TABLE" default:"работники"`
	OrdersTable        string `envconfig:"EDOSTAVKA_AIRTABLE_ORDERS_TABLE" default:"заказ"`
	ReviewsTable       string `envconfig:"EDOSTAVKA_AIRTABLE_REVIEWS_TABLE" default:"отзывы"`
	BannersTable       string `envconfig:"EDOSTAVKA_AIRTABLE_BANNERS_TABLE" default:"баннеры"`
	NotificationsTable string `envconfig:"EDOSTAVKA_AIRTABLE_NOTIFICATIONS_TABLE" default:"уведомления"`
	FeedbackTable      string `envconfig:"EDOSTAVKA_AIRTABLE_FEEDBACK_TABLE" default:"бета центр"`

	Timeout        time.Duration `envconfig:"EDOSTAVKA_AIRTABLE_TIMEOUT" default:"10s"`
	ReadRetries    uint64        `envconfig:"EDOSTAVKA_AIRTABLE_READ_RETRIES" default:"2"`
	ReadRetryDelay time.Duration `envconfig:"EDOSTAVKA_AIRTABLE_READ_RETRY_DELAY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EDOSTAVKA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EDOSTAVKA_REDIS_ADDR"`
	Password     string        `envconfig:"EDOSTAVKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"EDOSTAVKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EDOSTAVKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EDOSTAVKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EDOSTAVKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EDOSTAVKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EDOSTAVKA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CartConfig struct {
	MaxWeightKG     float64       `envconfig:"EDOSTAVKA_CART_MAX_WEIGHT_KG" default:"10"`
	PersistDebounce time.Duration `envconfig:"EDOSTAVKA_CART_PERSIST_DEBOUNCE" default:"1s"`
	AdjustmentTTL   time.Duration `envconfig:"EDOSTAVKA_CART_ADJUSTMENT_TTL" default:"4s"`
}

type CheckoutConfig struct {
	DeliveryFee       float64 `envconfig:"EDOSTAVKA_CHECKOUT_DELIVERY_FEE" default:"99"`
	DefaultETAMinutes int     `envconfig:"EDOSTAVKA_CHECKOUT_DEFAULT_ETA_MINUTES" default:"15"`
	DelayMinutes      int     `envconfig:"EDOSTAVKA_CHECKOUT_DELAY_MINUTES" default:"15"`
}

type SessionConfig struct {
	TTL         time.Duration `envconfig:"EDOSTAVKA_SESSION_TTL" default:"720h"`
	ThankYouTTL time.Duration `envconfig:"EDOSTAVKA_SESSION_THANK_YOU_TTL" default:"5m"`
}

// SyncConfig carries the cadence of every background poller. Delivering
// replaces Claim once a courier has an order in hand.
type SyncConfig struct {
	Order         time.Duration `envconfig:"EDOSTAVKA_SYNC_ORDER_INTERVAL" default:"4s"`
	Claim         time.Duration `envconfig:"EDOSTAVKA_SYNC_CLAIM_INTERVAL" default:"5s"`
	Delivering    time.Duration `envconfig:"EDOSTAVKA_SYNC_DELIVERING_INTERVAL" default:"8s"`
	Notifications time.Duration `envconfig:"EDOSTAVKA_SYNC_NOTIFICATIONS_INTERVAL" default:"15s"`
	Catalog       time.Duration `envconfig:"EDOSTAVKA_SYNC_CATALOG_INTERVAL" default:"30s"`
}
