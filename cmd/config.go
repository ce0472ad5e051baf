package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"cargotrust/internal/adapters/out/kv/memkv"
	"cargotrust/internal/pkg/errs"

	"github.com/joho/godotenv"
)

const (
	StoreBackendStructured = "structured"
	StoreBackendFlat       = "flat"

	KVBackendMemory   = "memory"
	KVBackendPostgres = "postgres"
)

type Config struct {
	HTTPPort string

	StoreBackend    string
	KVBackend       string
	KVCapacityBytes int64
	KVTable         string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	LedgerTimeout       time.Duration
	LedgerArbiter       string
	LedgerLatency       time.Duration
	BreakerMaxFailures  int
	BreakerResetTimeout time.Duration

	ReconcileSchedule  string
	StoreUsageSchedule string

	KafkaHost                 string
	KafkaDeliveryChangedTopic string

	LogLevel  string
	LogFormat string
}

// DefaultConfig runs a single process with an in-memory store.
func DefaultConfig() Config {
	return Config{
		HTTPPort:                  "8080",
		StoreBackend:              StoreBackendStructured,
		KVBackend:                 KVBackendMemory,
		KVCapacityBytes:           memkv.DefaultCapacity,
		KVTable:                   "cargotrust_kv",
		DBHost:                    "localhost",
		DBPort:                    "5432",
		DBUser:                    "postgres",
		DBName:                    "cargotrust",
		DBSslMode:                 "disable",
		LedgerTimeout:             10 * time.Second,
		LedgerLatency:             0,
		BreakerMaxFailures:        5,
		BreakerResetTimeout:       30 * time.Second,
		ReconcileSchedule:         "0 */5 * * * *",
		StoreUsageSchedule:        "*/30 * * * * *",
		KafkaDeliveryChangedTopic: "delivery.status_changed",
		LogLevel:                  "info",
		LogFormat:                 "json",
	}
}

// LoadConfig reads the configuration from the environment after loading
// envFile when it exists. Unset variables keep their defaults.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return ConfigFromEnv(os.LookupEnv)
}

// ConfigFromEnv builds a Config from lookup, reporting every malformed
// variable at once.
func ConfigFromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()
	r := envReader{lookup: lookup}

	r.stringVar("HTTP_PORT", &cfg.HTTPPort)
	r.stringVar("STORE_BACKEND", &cfg.StoreBackend)
	r.stringVar("KV_BACKEND", &cfg.KVBackend)
	r.int64Var("KV_CAPACITY_BYTES", &cfg.KVCapacityBytes)
	r.stringVar("KV_TABLE", &cfg.KVTable)
	r.stringVar("DB_HOST", &cfg.DBHost)
	r.stringVar("DB_PORT", &cfg.DBPort)
	r.stringVar("DB_USER", &cfg.DBUser)
	r.stringVar("DB_PASSWORD", &cfg.DBPassword)
	r.stringVar("DB_NAME", &cfg.DBName)
	r.stringVar("DB_SSLMODE", &cfg.DBSslMode)
	r.durationVar("LEDGER_TIMEOUT", &cfg.LedgerTimeout)
	r.stringVar("LEDGER_ARBITER", &cfg.LedgerArbiter)
	r.durationVar("LEDGER_LATENCY", &cfg.LedgerLatency)
	r.intVar("BREAKER_MAX_FAILURES", &cfg.BreakerMaxFailures)
	r.durationVar("BREAKER_RESET_TIMEOUT", &cfg.BreakerResetTimeout)
	r.stringVar("RECONCILE_SCHEDULE", &cfg.ReconcileSchedule)
	r.stringVar("STORE_USAGE_SCHEDULE", &cfg.StoreUsageSchedule)
	r.stringVar("KAFKA_HOST", &cfg.KafkaHost)
	r.stringVar("KAFKA_DELIVERY_CHANGED_TOPIC", &cfg.KafkaDeliveryChangedTopic)
	r.stringVar("LOG_LEVEL", &cfg.LogLevel)
	r.stringVar("LOG_FORMAT", &cfg.LogFormat)

	if err := errors.Join(append(r.errs, cfg.Validate())...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errList []error
	switch c.StoreBackend {
	case StoreBackendStructured, StoreBackendFlat:
	default:
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("STORE_BACKEND",
			fmt.Errorf("%q is not %s or %s", c.StoreBackend, StoreBackendStructured, StoreBackendFlat)))
	}
	switch c.KVBackend {
	case KVBackendMemory, KVBackendPostgres:
	default:
		errList = append(errList, errs.NewValueIsInvalidErrorWithCause("KV_BACKEND",
			fmt.Errorf("%q is not %s or %s", c.KVBackend, KVBackendMemory, KVBackendPostgres)))
	}
	if c.HTTPPort == "" {
		errList = append(errList, errs.NewValueIsRequiredError("HTTP_PORT"))
	}
	if c.BreakerMaxFailures < 1 {
		errList = append(errList, errs.NewValueIsOutOfRangeError("BREAKER_MAX_FAILURES", c.BreakerMaxFailures, 1, "max int"))
	}
	return errors.Join(errList...)
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) get(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) stringVar(key string, dst *string) {
	if v, ok := r.get(key); ok {
		*dst = v
	}
}

func (r *envReader) int64Var(key string, dst *int64) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, errs.NewValueIsInvalidErrorWithCause(key, err))
		return
	}
	*dst = n
}

func (r *envReader) intVar(key string, dst *int) {
	var n int64
	before := len(r.errs)
	r.int64Var(key, &n)
	if _, ok := r.get(key); ok && len(r.errs) == before {
		*dst = int(n)
	}
}

func (r *envReader) durationVar(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, errs.NewValueIsInvalidErrorWithCause(key, err))
		return
	}
	*dst = d
}
