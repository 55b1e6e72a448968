package serverconfig

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type ConfigStore struct {
	FlagRunAddr        string
	FlagDatabase       string
	FlagRazorpayKey    string
	FlagRazorpaySecret string
	FlagJWTSecret      string
	FlagJWTTTL         time.Duration
	FlagEnv            string
	FlagLogLevel       string
	DBMaxOpenConns     int
	DBMaxIdleConns     int
	DBConnMaxLifetime  time.Duration
	LoginRatePerMinute int
	LoginRateBurst     int
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		FlagRunAddr:        ":8080",
		FlagJWTTTL:         7 * 24 * time.Hour,
		FlagEnv:            "development",
		FlagLogLevel:       "info",
		DBMaxOpenConns:     25,
		DBMaxIdleConns:     5,
		DBConnMaxLifetime:  30 * time.Minute,
		LoginRatePerMinute: 10,
		LoginRateBurst:     5,
	}
}

// LoadDotEnv reads .env from the working directory when it exists.
// Variables already set in the environment are left alone.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// ParseFlags reads the command line into the store, then lets the
// environment override every value, as the deployment scripts expect.
func (configStore *ConfigStore) ParseFlags() error {
	return configStore.Parse(flag.CommandLine, os.Args[1:])
}

func (configStore *ConfigStore) Parse(fs *flag.FlagSet, args []string) error {
	fs.StringVar(&configStore.FlagRunAddr, "a", configStore.FlagRunAddr, "address and port to run server")
	fs.StringVar(&configStore.FlagDatabase, "d", configStore.FlagDatabase, "data for connecting to db")
	fs.StringVar(&configStore.FlagRazorpayKey, "k", configStore.FlagRazorpayKey, "razorpay key id")
	fs.StringVar(&configStore.FlagRazorpaySecret, "s", configStore.FlagRazorpaySecret, "razorpay key secret")
	fs.StringVar(&configStore.FlagJWTSecret, "j", configStore.FlagJWTSecret, "secret for signing admin tokens")
	fs.DurationVar(&configStore.FlagJWTTTL, "t", configStore.FlagJWTTTL, "admin token lifetime")
	fs.StringVar(&configStore.FlagEnv, "e", configStore.FlagEnv, "environment: development or production")
	fs.StringVar(&configStore.FlagLogLevel, "l", configStore.FlagLogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	stringFromEnv(&configStore.FlagRunAddr, "RUN_ADDRESS")
	stringFromEnv(&configStore.FlagDatabase, "DATABASE_URI")
	stringFromEnv(&configStore.FlagRazorpayKey, "RAZORPAY_KEY_ID")
	stringFromEnv(&configStore.FlagRazorpaySecret, "RAZORPAY_KEY_SECRET")
	stringFromEnv(&configStore.FlagJWTSecret, "JWT_SECRET")
	stringFromEnv(&configStore.FlagEnv, "APP_ENV")
	stringFromEnv(&configStore.FlagLogLevel, "LOG_LEVEL")

	var errs []error
	errs = append(errs,
		durationFromEnv(&configStore.FlagJWTTTL, "JWT_TTL"),
		intFromEnv(&configStore.DBMaxOpenConns, "DB_MAX_OPEN_CONNS"),
		intFromEnv(&configStore.DBMaxIdleConns, "DB_MAX_IDLE_CONNS"),
		durationFromEnv(&configStore.DBConnMaxLifetime, "DB_CONN_MAX_LIFETIME"),
		intFromEnv(&configStore.LoginRatePerMinute, "LOGIN_RATE_PER_MINUTE"),
		intFromEnv(&configStore.LoginRateBurst, "LOGIN_RATE_BURST"),
	)
	return errors.Join(errs...)
}

// Validate reports settings the server cannot start without. Gateway
// credentials are optional: payment routes answer 503 until they are set.
func (configStore *ConfigStore) Validate() error {
	var errs []error
	if configStore.FlagDatabase == "" {
		errs = append(errs, errors.New("database uri is required (-d or DATABASE_URI)"))
	}
	if configStore.FlagJWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required (-j or JWT_SECRET)"))
	}
	if configStore.FlagJWTTTL <= 0 {
		errs = append(errs, errors.New("jwt ttl must be positive"))
	}
	if configStore.LoginRatePerMinute <= 0 || configStore.LoginRateBurst <= 0 {
		errs = append(errs, errors.New("login rate and burst must be positive"))
	}
	return errors.Join(errs...)
}

func (configStore *ConfigStore) GatewayConfigured() bool {
	return configStore.FlagRazorpayKey != "" && configStore.FlagRazorpaySecret != ""
}

func stringFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func intFromEnv(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func durationFromEnv(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
