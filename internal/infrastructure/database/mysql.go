package database

import (
	"fmt"
	"strconv"
	"time"

	"pawnshop/internal/config"
	"pawnshop/internal/model"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN 构造连接串。innodb_lock_wait_timeout 作为会话变量下发，
// 门店序号行锁等待超过该值时 MySQL 返回 1205。
func DSN(cfg *config.MySQLConfig) string {
	c := mysqldrv.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{
		"charset":                  "utf8mb4",
		"innodb_lock_wait_timeout": strconv.Itoa(cfg.LockWaitTimeoutSeconds),
	}
	return c.FormatDSN()
}

// Config returns the gorm settings shared by every dialector. TranslateError
// turns unique-key violations into gorm.ErrDuplicatedKey.
func Config() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// InitMySQL 初始化 MySQL 连接并迁移表结构
func InitMySQL(cfg *config.MySQLConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(DSN(cfg)), Config())
	if err != nil {
		return nil, fmt.Errorf("连接 MySQL 失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 DB 失败: %w", err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("自动迁移表结构失败: %w", err)
	}

	log.Info("MySQL 连接成功", zap.String("host", cfg.Host), zap.String("database", cfg.Database))
	return db, nil
}

// Migrate creates or updates every table the service touches, including the
// directory tables that other modules own in production.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Company{},
		&model.Store{},
		&model.Customer{},
		&model.ItemType{},
		&model.PawnContract{},
		&model.PawnItem{},
		&model.PaymentRecord{},
		&model.AuctionBatch{},
		&model.AuctionBatchItem{},
		&model.OutboxMessage{},
	)
}
