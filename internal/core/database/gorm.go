package database

import (
	"errors"
	"net/url"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"

	zaplog "docshare/internal/core/logger"
)

type Opts struct {
	Driver             string // mysql / postgres / sqlite
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
	Log                *zap.Logger // 可选，打印脱敏后的 DSN
}

var ErrUnsupportedDriver = errors.New("unsupported db driver")

func NewGorm(o Opts) (*gorm.DB, error) {
	var dial gorm.Dialector
	switch o.Driver {
	case "postgres":
		dial = postgres.Open(o.DSN)
	case "mysql":
		dsn, err := NormalizeMySQLDSN(o.DSN, o.Username, o.Password)
		if err != nil {
			return nil, err
		}
		if o.Log != nil {
			o.Log.Info("mysql dsn", zap.String("dsn", MaskDSN(dsn)))
		}
		dial = mysql.Open(dsn)
	case "sqlite":
		dial = sqlite.Open(o.DSN)
	default:
		return nil, ErrUnsupportedDriver
	}
	lvl := logger.Warn
	switch o.LogLevel {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	}
	gl := logger.Default.LogMode(lvl)
	if o.Log != nil {
		// SQL 日志走 zap
		if std, err := zaplog.ToStdLogger(o.Log.Named("gorm"), zap.WarnLevel); err == nil {
			gl = logger.New(std, logger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  lvl,
				IgnoreRecordNotFoundError: true,
			})
		}
	}
	db, err := gorm.Open(dial, &gorm.Config{Logger: gl})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if o.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.Driver == "sqlite" {
		// 没有行锁：单连接串行化写事务
		sqlDB.SetMaxOpenConns(1)
	}
	if o.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(o.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(o.ConnMaxLifetimeMin) * time.Minute)
	db = db.
		Session(&gorm.Session{
			PrepareStmt:            o.Driver != "sqlite", // 预编译缓存；sqlite 内存库不需要
			CreateBatchSize:        200,                  // 批量写
			SkipDefaultTransaction: true,                 // 只在工作单元里开 Tx
		})
	return db, nil
}

// NormalizeMySQLDSN 接受 go-sql-driver DSN 或 mysql:// / jdbc:mysql:// URL，
// 统一输出 go-sql-driver 格式，并补上 parseTime/utf8mb4
func NormalizeMySQLDSN(input, userOverride, passOverride string) (string, error) {
	in := strings.TrimSpace(input)
	if in == "" {
		return "", errors.New("empty mysql dsn")
	}
	in = strings.TrimPrefix(in, "jdbc:")

	var cfg *mysqldrv.Config
	if strings.HasPrefix(in, "mysql://") {
		u, err := url.Parse(in)
		if err != nil {
			return "", err
		}
		cfg = mysqldrv.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		q := u.Query()
		if v := q.Get("user"); v != "" {
			cfg.User = v
		}
		if v := q.Get("password"); v != "" {
			cfg.Passwd = v
		}
		// JDBC 常见参数
		if v := strings.ToLower(q.Get("useSSL")); v != "" {
			switch v {
			case "true", "1":
				cfg.TLSConfig = "true"
			case "skip-verify", "preferred":
				cfg.TLSConfig = v
			}
		}
		if tz := q.Get("serverTimezone"); tz != "" {
			if loc, err := time.LoadLocation(tz); err == nil {
				cfg.Loc = loc
			}
		}
		if cs := q.Get("characterEncoding"); cs != "" && !strings.EqualFold(cs, "utf8") && !strings.EqualFold(cs, "utf-8") {
			cfg.Params = map[string]string{"charset": cs}
		}
	} else {
		var err error
		cfg, err = mysqldrv.ParseDSN(in)
		if err != nil {
			return "", err
		}
	}

	if userOverride != "" {
		cfg.User = userOverride
	}
	if passOverride != "" {
		cfg.Passwd = passOverride
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok && !strings.Contains(in, "charset=") {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

// MaskDSN 隐藏 user:pass@ 中的密码
func MaskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	if at <= 0 {
		return dsn
	}
	if colon := strings.Index(dsn[:at], ":"); colon > 0 {
		return dsn[:colon+1] + "****" + dsn[at:]
	}
	return dsn
}
