package orm

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver      string `mapstructure:"driver" yaml:"driver"`             // mysql / postgres / sqlite
	DSN         string `mapstructure:"dsn" yaml:"dsn"`                   // 连接字符串
	MaxIdle     int    `mapstructure:"max_idle" yaml:"max_idle"`         // 最大空闲连接
	MaxOpen     int    `mapstructure:"max_open" yaml:"max_open"`         // 最大打开连接
	MaxLifetime int    `mapstructure:"max_lifetime" yaml:"max_lifetime"` // 连接存活秒数
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`       // silent / error / warn / info
}

// Open 按 Driver 初始化 GORM
func Open(c *Config) (*gorm.DB, error) {
	dialector, err := dialectorOf(c)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// 生产环境用 warn/error，开发环境用 info (打印SQL)
		Logger: logger.Default.LogMode(logLevel(c.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	maxOpen := c.MaxOpen
	// :memory: 每个连接都是一个新库，只能用单连接
	if isMemorySQLite(c) {
		maxOpen = 1
	}
	if c.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(c.MaxIdle)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if c.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(c.MaxLifetime) * time.Second)
	}
	return db, nil
}

// MustOpen 启动阶段使用，连不上直接 panic
func MustOpen(c *Config) *gorm.DB {
	db, err := Open(c)
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}
	return db
}

func dialectorOf(c *Config) (gorm.Dialector, error) {
	switch strings.ToLower(c.Driver) {
	case "", DriverMySQL:
		return mysql.Open(c.DSN), nil
	case DriverPostgres, "postgresql":
		return postgres.Open(c.DSN), nil
	case DriverSQLite, "sqlite3":
		return sqlite.Open(c.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", c.Driver)
	}
}

func isMemorySQLite(c *Config) bool {
	d := strings.ToLower(c.Driver)
	return (d == DriverSQLite || d == "sqlite3") && strings.Contains(c.DSN, ":memory:")
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
