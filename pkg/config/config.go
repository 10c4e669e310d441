package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	Service        ServiceConfig
	DB             DBConfig
	Redis          RedisConfig
	FeatureFlags   FeatureFlagsConfig
	Reservation    ReservationConfig
	AutoTransition AutoTransitionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.AutoTransition.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"DVFASHION_APP_ENV" required:"true"`
	Port         string `envconfig:"DVFASHION_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"DVFASHION_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"DVFASHION_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"DVFASHION_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"DVFASHION_DB_DSN"`
	Driver string `envconfig:"DVFASHION_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"DVFASHION_DB_HOST"`
	LegacyPort     int    `envconfig:"DVFASHION_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"DVFASHION_DB_USER"`
	LegacyPassword string `envconfig:"DVFASHION_DB_PASSWORD"`
	LegacyName     string `envconfig:"DVFASHION_DB_NAME"`
	LegacySSLMode  string `envconfig:"DVFASHION_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"DVFASHION_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"DVFASHION_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"DVFASHION_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"DVFASHION_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"DVFASHION_REDIS_URL" required:"true"`
	Address      string        `envconfig:"DVFASHION_REDIS_ADDR"`
	Password     string        `envconfig:"DVFASHION_REDIS_PASSWORD"`
	DB           int           `envconfig:"DVFASHION_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"DVFASHION_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"DVFASHION_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"DVFASHION_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"DVFASHION_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"DVFASHION_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"DVFASHION_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"DVFASHION_AUTO_MIGRATE" default:"false"`
}

// ReservationConfig governs how long cart reservations hold stock and how
// often the expiry scanner reclaims abandoned ones.
type ReservationConfig struct {
	TTL          time.Duration `envconfig:"DVFASHION_RESERVATION_TTL" default:"30m"`
	ScanInterval time.Duration `envconfig:"DVFASHION_RESERVATION_SCAN_INTERVAL" default:"30m"`
}

// AutoTransitionConfig is the immutable configuration for delayed order
// status transitions. Delays default to the production schedule; shorter
// values are useful for demos and tests.
type AutoTransitionConfig struct {
	Enabled          bool          `envconfig:"DVFASHION_AUTO_TRANSITION_ENABLED" default:"true"`
	ExecutorInterval time.Duration `envconfig:"DVFASHION_AUTO_TRANSITION_EXECUTOR_INTERVAL" default:"5m"`

	ConfirmedToProcessingDelay time.Duration `envconfig:"DVFASHION_AUTO_TRANSITION_CONFIRMED_TO_PROCESSING_DELAY" default:"2h"`
	ProcessingToShippedDelay   time.Duration `envconfig:"DVFASHION_AUTO_TRANSITION_PROCESSING_TO_SHIPPED_DELAY" default:"24h"`
	ShippedToDeliveredDelay    time.Duration `envconfig:"DVFASHION_AUTO_TRANSITION_SHIPPED_TO_DELIVERED_DELAY" default:"72h"`
	PendingToCancelledDelay    time.Duration `envconfig:"DVFASHION_AUTO_TRANSITION_PENDING_TO_CANCELLED_DELAY" default:"168h"`
	DefaultDelay               time.Duration `envconfig:"DVFASHION_AUTO_TRANSITION_DEFAULT_DELAY" default:"1h"`

	NotifyCustomerOnTransition bool `envconfig:"DVFASHION_AUTO_TRANSITION_NOTIFY_CUSTOMER" default:"false"`

	RespectBusinessHours bool `envconfig:"DVFASHION_AUTO_TRANSITION_RESPECT_BUSINESS_HOURS" default:"false"`
	BusinessStartHour    int  `envconfig:"DVFASHION_AUTO_TRANSITION_BUSINESS_START_HOUR" default:"5"`
	BusinessEndHour      int  `envconfig:"DVFASHION_AUTO_TRANSITION_BUSINESS_END_HOUR" default:"21"`
}

func (a AutoTransitionConfig) validate() error {
	if a.BusinessStartHour < 0 || a.BusinessStartHour > 23 {
		return fmt.Errorf("business start hour %d out of range", a.BusinessStartHour)
	}
	if a.BusinessEndHour < 0 || a.BusinessEndHour > 23 {
		return fmt.Errorf("business end hour %d out of range", a.BusinessEndHour)
	}
	if a.RespectBusinessHours && a.BusinessEndHour <= a.BusinessStartHour {
		return fmt.Errorf("business hours window %d-%d is empty", a.BusinessStartHour, a.BusinessEndHour)
	}
	return nil
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
