package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/bairdservice/baird-backend/pkg/config"
	"github.com/bairdservice/baird-backend/pkg/logger"
)

// Pinger is the readiness probe surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Client owns the pooled postgres connection shared by every repository.
type Client struct {
	conn *gorm.DB
}

// New opens postgres through pgx and applies the pool limits from cfg.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	conn, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	client := &Client{conn: conn}
	sqlDB, err := client.SQL()
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, cfg)

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"max_open_conns": cfg.MaxOpenConns,
			"max_idle_conns": cfg.MaxIdleConns,
		}), "database connection established")
	}
	return client, nil
}

func configurePool(sqlDB *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Wrap adopts an already open connection. Tests use it with sqlite.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQL exposes the database/sql handle for goose and pool tuning.
func (c *Client) SQL() (*sql.DB, error) {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB, nil
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.SQL()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.SQL()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction that commits only when fn returns nil.
// A panic inside fn rolls back and is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
