package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	HandlerTimeoutSec int // 单请求处理超时
	MaxBodyMB         int // 请求体上限，决定最大上传
	RPS               float64
	Burst             int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string
	HTTP  HTTP
	Admin AdminHTTP
}

type Log struct {
	Level  string
	JSON   bool
	Rotate LogRotate
}

// LogRotate 文件输出 + lumberjack 切割
type LogRotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// AMQP 审核事件投递；URL 为空时不投递
type AMQP struct {
	URL   string
	Queue string
}

type Storage struct {
	Driver string // local / s3
	Dir    string // local
	S3     S3
}

type S3 struct {
	Bucket    string
	Region    string
	Endpoint  string // 自定义 endpoint（MinIO 等），会启用 path-style
	AccessKey string
	SecretKey string
	Prefix    string
}

type Moderation struct {
	RemarkMaxLen int
}

type Stats struct {
	CacheTTLSec int
	LRUSize     int
}

// Bootstrap 首次启动时创建的管理员；用户名为空则跳过
type Bootstrap struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

type Config struct {
	App        App
	Log        Log
	JWT        JWT
	DB         DB
	Redis      Redis `mapstructure:"redis"`
	AMQP       AMQP  `mapstructure:"amqp"`
	Storage    Storage
	Moderation Moderation
	Stats      Stats
	Bootstrap  Bootstrap
}

func (s Stats) CacheTTL() time.Duration { return time.Duration(s.CacheTTLSec) * time.Second }

func (j JWT) TTL() time.Duration { return time.Duration(j.AccessTokenTTLMin) * time.Minute }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "docshare")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.http.handlertimeoutsec", 30)
	v.SetDefault("app.http.maxbodymb", 64)
	v.SetDefault("app.http.rps", 200)
	v.SetDefault("app.http.burst", 400)
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "docshare")
	v.SetDefault("jwt.accesstokenttlmin", 120)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:docshare.db?_busy_timeout=5000")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("amqp.queue", "moderation.events")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.dir", "./data/blobs")
	v.SetDefault("moderation.remarkmaxlen", 255)
	v.SetDefault("stats.cachettlsec", 60)
	v.SetDefault("stats.lrusize", 256)
}

// Load 读取 YAML 配置，APP_ 前缀环境变量覆盖（APP_DB_DSN → db.dsn）
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustLoad 失败直接退出，给 main 用
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("config: unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("config: storage.s3.bucket is required")
	}
	if c.Moderation.RemarkMaxLen <= 0 {
		c.Moderation.RemarkMaxLen = 255
	}
	return nil
}
