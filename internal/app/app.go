// Package app 进程级装配：配置 → 基础设施 → 服务 → 路由模块
package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docshare/internal/core/auth"
	"docshare/internal/core/cache"
	"docshare/internal/core/config"
	"docshare/internal/core/database"
	"docshare/internal/event"
	"docshare/internal/repo"
	"docshare/internal/service"
	"docshare/internal/storage"
	"docshare/internal/transport/http/handler"
	"docshare/internal/transport/http/router"
)

type App struct {
	Cfg *config.Config
	Log *zap.Logger
	DB  *gorm.DB
	JWT *auth.JWTer

	Auth       *service.Auth
	Files      *service.Files
	Engagement *service.Engagement
	Moderation *service.Moderation
	Catalog    *service.Catalog
	Stats      *service.Stats

	closers []func() error
}

// New 打开数据库、缓存、事件、对象存储并装配服务。返回错误时已打开的资源会被关闭
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) (err error) {
	cfg, l := a.Cfg, a.Log

	a.DB, err = database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                l,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, func() error {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err = repo.AutoMigrate(a.DB); err != nil {
			return err
		}
		l.Info("automigrate done")
	}

	blobs, err := a.openBlobs(ctx)
	if err != nil {
		return err
	}

	deps := service.Deps{
		UoW:          repo.NewUnitOfWork(a.DB),
		Blobs:        blobs,
		Events:       a.openEvents(),
		Log:          l,
		RemarkMaxLen: cfg.Moderation.RemarkMaxLen,
	}

	a.JWT = &auth.JWTer{Secret: []byte(cfg.JWT.Secret), Issuer: cfg.JWT.Issuer, TTL: cfg.JWT.TTL()}
	a.Auth = service.NewAuth(deps, a.JWT)
	a.Files = service.NewFiles(deps)
	a.Engagement = service.NewEngagement(deps)
	a.Moderation = service.NewModeration(deps)
	a.Catalog = service.NewCatalog(deps)
	a.Stats = service.NewStats(deps, a.openCache(ctx), cfg.Stats.CacheTTL())

	return a.bootstrap(ctx)
}

func (a *App) openBlobs(ctx context.Context) (storage.BlobStore, error) {
	sc := a.Cfg.Storage
	if sc.Driver == "s3" {
		s, err := storage.NewS3(ctx, storage.S3Options{
			Bucket:    sc.S3.Bucket,
			Region:    sc.S3.Region,
			Endpoint:  sc.S3.Endpoint,
			AccessKey: sc.S3.AccessKey,
			SecretKey: sc.S3.SecretKey,
			Prefix:    sc.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		a.Log.Info("blob store", zap.String("driver", "s3"), zap.String("bucket", sc.S3.Bucket))
		return s, nil
	}
	s, err := storage.NewLocal(sc.Dir)
	if err != nil {
		return nil, err
	}
	a.Log.Info("blob store", zap.String("driver", "local"), zap.String("dir", sc.Dir))
	return s, nil
}

// openEvents 未配置 AMQP 时不投递
func (a *App) openEvents() event.Publisher {
	if a.Cfg.AMQP.URL == "" {
		return event.Noop{}
	}
	p := event.NewAMQPPublisher(a.Cfg.AMQP.URL, a.Cfg.AMQP.Queue, a.Log)
	a.closers = append(a.closers, p.Close)
	a.Log.Info("moderation events", zap.String("queue", a.Cfg.AMQP.Queue))
	return p
}

// openCache redis 不可用时退回进程内 LRU
func (a *App) openCache(ctx context.Context) cache.Store {
	sc := a.Cfg.Stats
	if rc := a.Cfg.Redis; rc.Addr != "" {
		c := cache.New(rc.Addr, rc.Password, rc.DB)
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		err := c.Ping(pctx)
		if err == nil {
			a.closers = append(a.closers, c.Close)
			a.Log.Info("stats cache", zap.String("backend", "redis"), zap.String("addr", rc.Addr))
			return c
		}
		a.Log.Warn("redis unavailable, using local cache", zap.String("addr", rc.Addr), zap.Error(err))
		_ = c.Close()
	}
	return cache.NewLocal(sc.LRUSize, sc.CacheTTL())
}

func (a *App) bootstrap(ctx context.Context) error {
	b := a.Cfg.Bootstrap
	if b.AdminUsername == "" {
		return nil
	}
	u, created, err := a.Auth.EnsureAdmin(ctx, service.RegisterInput{
		Username: b.AdminUsername,
		Email:    b.AdminEmail,
		Password: b.AdminPassword,
	})
	if err != nil {
		return err
	}
	if created {
		a.Log.Info("bootstrap admin created", zap.Uint64("id", u.ID), zap.String("username", u.Username))
	}
	return nil
}

// Limits 用户端引擎参数
func (a *App) Limits() router.Limits {
	h := a.Cfg.App.HTTP
	return router.Limits{
		RPS:          h.RPS,
		Burst:        h.Burst,
		MaxBodyBytes: int64(h.MaxBodyMB) << 20,
		Timeout:      time.Duration(h.HandlerTimeoutSec) * time.Second,
	}
}

func (a *App) APIRegistry() *router.Registry {
	reg := &router.Registry{}
	return reg.Register(
		handler.NewAuthHandler(a.Auth, a.Log),
		handler.NewFileHandler(a.Files, a.Engagement, a.Log),
		handler.NewCatalogHandler(a.Catalog, a.Stats, a.Log),
	)
}

func (a *App) AdminRegistry() *router.Registry {
	reg := &router.Registry{}
	return reg.Register(
		handler.NewModerationHandler(a.Moderation, a.Engagement, a.Log),
		handler.NewCatalogHandler(a.Catalog, a.Stats, a.Log),
		handler.NewStatsHandler(a.Stats, a.Log),
	)
}

// Close 逆序释放资源
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil && a.Log != nil {
		a.Log.Warn("close resources", zap.Error(err))
	}
}
