package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/QuantumNous/image-studio/common"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func chooseDB() (*gorm.DB, error) {
	dsn := os.Getenv("SQL_DSN")
	if dsn != "" {
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			common.SysLog("using PostgreSQL as database")
			common.UsingPostgreSQL = true
			return gorm.Open(postgres.New(postgres.Config{
				DSN:                  dsn,
				PreferSimpleProtocol: true,
			}), newGormConfig())
		}
		common.SysLog("using MySQL as database")
		common.UsingMySQL = true
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return gorm.Open(mysql.Open(dsn), newGormConfig())
	}

	common.SysLog("SQL_DSN not set, using SQLite as database")
	common.UsingSQLite = true
	if dir := filepath.Dir(common.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}
	return openSQLite(common.SQLitePath + "?_pragma=busy_timeout(5000)")
}

func openSQLite(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), newGormConfig())
}

// newGormConfig 开启错误翻译，唯一索引冲突返回 gorm.ErrDuplicatedKey
func newGormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
	}
}

// InitDB 初始化数据库连接并迁移表结构
func InitDB() error {
	db, err := chooseDB()
	if err != nil {
		return err
	}
	if common.DebugEnabled {
		db = db.Debug()
	}
	DB = db

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(common.GetEnvOrDefault("SQL_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(common.GetEnvOrDefault("SQL_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(time.Second * time.Duration(common.GetEnvOrDefault("SQL_MAX_LIFETIME", 60)))

	return migrateDB()
}

// InitSQLiteDB 打开 SQLite 数据库并迁移，":memory:" 固定为单连接以共享同一个库
func InitSQLiteDB(dsn string) error {
	db, err := openSQLite(dsn)
	if err != nil {
		return err
	}
	common.UsingSQLite = true
	DB = db
	if strings.Contains(dsn, ":memory:") {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return migrateDB()
}

func migrateDB() error {
	if err := DB.AutoMigrate(&User{}); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	common.SysLog("database migrated")
	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
