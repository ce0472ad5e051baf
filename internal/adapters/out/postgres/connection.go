// Package postgres opens the PostgreSQL connection shared by the
// persistence adapters.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Settings struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns int
	PingTimeout  time.Duration
}

// DSN renders s as a libpq keyword/value connection string. Values are
// quoted so that passwords may contain spaces and quotes.
func (s Settings) DSN() string {
	pairs := []struct{ key, value string }{
		{"host", s.Host},
		{"port", s.Port},
		{"user", s.User},
		{"password", s.Password},
		{"dbname", s.DBName},
		{"sslmode", s.SSLMode},
	}

	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.value == "" {
			continue
		}
		parts = append(parts, p.key+"="+quote(p.value))
	}
	return strings.Join(parts, " ")
}

func quote(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// Open connects and pings the database.
//
// Example:
//
//	db, err := postgres.Open(ctx, postgres.Settings{Host: "localhost", Port: "5432", DBName: "cargotrust"})
//	if err != nil {
//	    log.Fatal("failed to connect database")
//	}
func Open(ctx context.Context, s Settings) (*gorm.DB, error) {
	db, err := gorm.Open(postgresdriver.Open(s.DSN()), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if s.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(s.MaxOpenConns)
	}

	timeout := s.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err = sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres at %s:%s: %w", s.Host, s.Port, err)
	}
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
