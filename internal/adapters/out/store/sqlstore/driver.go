package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sync"

	"cargotrust/internal/core/domain/services"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

// driverName is go-sqlite3 with the fold() search function registered on
// every connection.
const driverName = "sqlite3_cargotrust"

//go:embed migrations/*.sql
var embedMigrations embed.FS

var gooseOnce sync.Once

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", services.FoldForSearch, true)
		},
	})
}

// openDatabase opens a private in-memory database. The pool is pinned to a
// single connection: the database lives and dies with it.
func openDatabase() (*sql.DB, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
	return db, nil
}

func migrate(db *sql.DB) error {
	var setupErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(embedMigrations)
		goose.SetLogger(goose.NopLogger())
		setupErr = goose.SetDialect("sqlite3")
	})
	if setupErr != nil {
		return setupErr
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// withConn runs fn on the underlying driver connection.
func withConn(ctx context.Context, db *sql.DB, fn func(c *sqlite3.SQLiteConn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return errors.New("unexpected driver connection type")
		}
		return fn(c)
	})
}

func serialize(ctx context.Context, db *sql.DB) ([]byte, error) {
	var image []byte
	err := withConn(ctx, db, func(c *sqlite3.SQLiteConn) error {
		var err error
		image, err = c.Serialize("main")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	return image, nil
}

// deserialize replaces the contents of db with image. A deserialized
// database cannot grow, so the image is opened on a scratch connection and
// copied into db with the backup API.
func deserialize(ctx context.Context, db *sql.DB, image []byte) error {
	scratch, err := openDatabase()
	if err != nil {
		return err
	}
	defer scratch.Close()

	err = withConn(ctx, scratch, func(src *sqlite3.SQLiteConn) error {
		if err := src.Deserialize(image, "main"); err != nil {
			return err
		}
		return withConn(ctx, db, func(dst *sqlite3.SQLiteConn) error {
			return copyDatabase(dst, src)
		})
	})
	if err != nil {
		return fmt.Errorf("deserialize: %w", err)
	}
	return nil
}

func copyDatabase(dst, src *sqlite3.SQLiteConn) error {
	backup, err := dst.Backup("main", src, "main")
	if err != nil {
		return err
	}
	done, err := backup.Step(-1)
	if err != nil {
		_ = backup.Close()
		return err
	}
	if !done {
		_ = backup.Close()
		return errors.New("backup did not complete")
	}
	return backup.Close()
}
