package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	DB *gorm.DB
)

// Config 包含数据库连接的配置信息
type Config struct {
	Driver     string
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SQLitePath string
}

// Dialector picks the gorm driver for the configured database.
func (c Config) Dialector() (gorm.Dialector, error) {
	switch c.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.Host, c.Port, c.User, c.Password, c.DBName)
		return postgres.Open(dsn), nil
	case "sqlite":
		if dir := filepath.Dir(c.SQLitePath); !strings.HasPrefix(c.SQLitePath, "file:") && dir != "." {
			if err := os.MkdirAll(dir, os.ModePerm); err != nil {
				return nil, fmt.Errorf("create sqlite dir: %w", err)
			}
		}
		return sqlite.Open(sqliteDSN(c.SQLitePath)), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}
}

// sqliteDSN enables foreign keys and makes writers queue on the database
// lock: transactions take the write lock at BEGIN and wait up to 5s for it.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
}

// OpenDB connects to the configured database. Duplicate key errors are
// translated to gorm.ErrDuplicatedKey for every driver.
func OpenDB(config Config) (*gorm.DB, error) {
	dialector, err := config.Dialector()
	if err != nil {
		return nil, err
	}
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func InitDB(config Config) {
	db, err := OpenDB(config)
	if err != nil {
		Logger.Fatalf("Failed to initialize database: %v", err)
	}
	DB = db
}

// OpenMemoryDB opens a private in-memory sqlite database and migrates
// nothing. A single connection keeps every query on the same database.
func OpenMemoryDB() (*gorm.DB, error) {
	db, err := OpenDB(Config{
		Driver:     "sqlite",
		SQLitePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
