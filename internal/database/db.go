package database

import (
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ai-course-tutor/config"
	"ai-course-tutor/pkg/logger"
)

var (
	mu sync.Mutex
	db *gorm.DB
)

// connect opens the DB and applies pool configuration.
func connect() (*gorm.DB, error) {
	conn, err := gorm.Open(mysql.Open(config.Cfg.Dns), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(config.Cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.Cfg.Database.MaxOpenConns)
	lifetime := time.Duration(config.Cfg.Database.MaxLifetime) * time.Minute
	sqlDB.SetConnMaxIdleTime(lifetime)
	sqlDB.SetConnMaxLifetime(lifetime)

	return conn, nil
}

// GetDB returns a healthy *gorm.DB, connecting lazily on first use and
// reconnecting when the pool went stale.
func GetDB() (*gorm.DB, error) {
	mu.Lock()
	defer mu.Unlock()

	if db != nil {
		sqlDB, err := db.DB()
		if err == nil && sqlDB.Ping() == nil {
			return db, nil
		}
		logger.Warn("%v: connection stale, reconnecting", config.ModuleDatabase)
	}

	conn, err := connect()
	if err != nil {
		logger.Error(err, "%v: failed to connect", config.ModuleDatabase)
		return nil, err
	}
	db = conn
	return db, nil
}
