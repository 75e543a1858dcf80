package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davidwuwu001/vmail/internal/auth"
	"github.com/davidwuwu001/vmail/internal/config"
	"github.com/davidwuwu001/vmail/internal/health"
	"github.com/davidwuwu001/vmail/internal/logger"
	"github.com/davidwuwu001/vmail/internal/monitoring"
	"github.com/davidwuwu001/vmail/internal/service"
	"github.com/davidwuwu001/vmail/internal/smtp"
	"github.com/davidwuwu001/vmail/internal/storage"
	"github.com/davidwuwu001/vmail/internal/storage/memory"
	rediscache "github.com/davidwuwu001/vmail/internal/storage/redis"
	sqlstore "github.com/davidwuwu001/vmail/internal/storage/sql"
	httptransport "github.com/davidwuwu001/vmail/internal/transport/http"
)

// main 启动同时包含 HTTP API 与 SMTP 的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化日志系统
	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("starting vmail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer store.Close()

	// 初始化 Redis 地址缓存（可选）
	var cache *rediscache.Cache
	if cfg.Redis.Enabled {
		cache, err = rediscache.NewCache(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.CacheTTL)
		if err != nil {
			log.Warn("failed to connect redis, continuing without cache", zap.Error(err))
			cache = nil
		} else {
			log.Info("redis cache enabled", zap.String("addr", cfg.Redis.Address))
			defer cache.Close()
		}
	}

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewHealthChecker(store, cache, log)

	// 初始化服务层
	mailboxService := service.NewMailboxService(store, cfg, log)
	if cache != nil {
		mailboxService.SetCache(cache)
	}
	emailService := service.NewEmailService(store, mailboxService, log)
	authService := auth.NewService(store)
	tokenManager := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenExpiry)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		AuthService:    authService,
		TokenManager:   tokenManager,
		MailboxService: mailboxService,
		Metrics:        metrics,
		HealthChecker:  healthChecker,
		Logger:         log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 创建 SMTP 服务器
	smtpBackend := smtp.NewBackend(mailboxService, emailService, cfg.Mailbox.AllowedDomains, metrics, log)
	smtpServer := smtp.NewServer(&cfg.SMTP, smtpBackend, log)

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("domain", cfg.SMTP.Domain),
		)
		if err := smtpServer.ListenAndServe(); err != nil {
			select {
			case <-groupCtx.Done():
				return nil
			default:
			}
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期邮箱 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Mailbox.SweepInterval)
		defer ticker.Stop()

		log.Info("starting expired mailbox sweep task", zap.Duration("interval", cfg.Mailbox.SweepInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("sweep task stopped")
				return nil
			case <-ticker.C:
				count, err := mailboxService.ExpireSweep(time.Now())
				if err != nil {
					log.Error("failed to sweep expired mailboxes", zap.Error(err))
				} else if count > 0 {
					metrics.MailboxesExpired.Add(float64(count))
				}
			}
		}
	})

	// 等待退出信号后优雅关停
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		if err := smtpServer.Close(); err != nil {
			log.Error("SMTP server close error", zap.Error(err))
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
	}
	log.Info("server stopped")
}
