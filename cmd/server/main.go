package main // Entry point package

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/irctc-booking-supporter/internal/config"
	"github.com/iliyamo/irctc-booking-supporter/internal/database"
	"github.com/iliyamo/irctc-booking-supporter/internal/flow"
	"github.com/iliyamo/irctc-booking-supporter/internal/handler"
	"github.com/iliyamo/irctc-booking-supporter/internal/logging"
	"github.com/iliyamo/irctc-booking-supporter/internal/page"
	"github.com/iliyamo/irctc-booking-supporter/internal/queue"
	"github.com/iliyamo/irctc-booking-supporter/internal/repository"
	"github.com/iliyamo/irctc-booking-supporter/internal/router"
	"github.com/iliyamo/irctc-booking-supporter/internal/service"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
	"github.com/iliyamo/irctc-booking-supporter/internal/utils"
)

func main() {
	hashPass := flag.String("hash-passphrase", "", "print the bcrypt hash for SHELL_PASSPHRASE_HASH and exit")
	flag.Parse()
	if *hashPass != "" {
		h, err := utils.HashPassword(*hashPass, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	cfg := config.Load() // Load environment config
	log, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	checks := map[string]handler.Check{}

	// Redis: saved configurations, rate limit, cache.  Optional.
	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable: rate limit and cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	store, closeStore, err := openStore(cfg, rdb, log)
	if err != nil {
		return fmt.Errorf("config store: %w", err)
	}
	defer closeStore()
	if err := store.Migrate(ctx); err != nil {
		log.Warn("legacy configuration migration failed", zap.Error(err))
	}

	// MySQL run history.  Optional.
	var runStore handler.RunStore
	var history service.RunHistory
	if cfg.HistoryEnabled() {
		db, err := database.Open(ctx, cfg)
		if err != nil {
			return fmt.Errorf("mysql: %w", err)
		}
		defer func() { _ = db.Close() }()
		runs := repository.NewRunRepo(db)
		if err := runs.Ensure(ctx); err != nil {
			return fmt.Errorf("mysql schema: %w", err)
		}
		runStore, history = runs, runs
		checks["mysql"] = db.PingContext
	}

	// Status fan-out: zap, last-status snapshot, broker.
	snapshot := &status.Snapshot{}
	reporters := status.Multi{status.Log{L: log.Named("status")}, snapshot}
	if cfg.RabbitURL != "" {
		pub := service.NewStatusPublisher(cfg.RabbitURL, log)
		defer func() { _ = pub.Close() }()
		reporters = append(reporters, pub)
		go func() {
			if err := queue.StartStatusConsumer(ctx, cfg.RabbitURL, cfg.LogDir, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("status consumer stopped", zap.Error(err))
			}
		}()
	}

	browser, err := page.Open(context.WithoutCancel(ctx), cfg.Browser)
	if err != nil {
		return fmt.Errorf("browser: %w", err)
	}
	defer func() { _ = browser.Close() }()

	ctrl := flow.New(flow.Options{
		Logger:    log.Named("flow"),
		Timings:   cfg.Flow,
		SearchURL: cfg.Browser.SiteURL,
	})
	channel := service.NewChannel(service.ChannelOptions{
		Tabs:       browser,
		Controller: ctrl,
		Reporter:   reporters,
		History:    history,
		Logger:     log,
	})

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(requestLogger(log.Named("http")))

	deps := router.Deps{
		Cfg:       cfg,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Rdb:       rdb,
		Log:       log,
		Auth:      handler.NewAuthHandler(cfg),
		Messages:  handler.NewMessageHandler(channel),
		Configs:   handler.NewConfigHandler(store),
		Status:    handler.NewStatusHandler(snapshot, channel, runStore),
		Checks:    checks,
	}
	router.RegisterRoutes(e, deps)
	router.RegisterAuth(e, deps)
	router.RegisterControl(e, deps)

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("driver", cfg.Browser.Driver))
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := channel.Close(shutdown); err != nil {
		log.Warn("run did not stop in time", zap.Error(err))
	}
	return e.Shutdown(shutdown)
}

// openStore picks the saved-configuration backend.  Badger is used when
// asked for or when Redis is down.
func openStore(cfg config.Config, rdb *redis.Client, log *zap.Logger) (repository.ConfigStore, func(), error) {
	if cfg.StoreBackend != "badger" && rdb != nil {
		log.Info("saved configurations in redis")
		return repository.NewRedisConfigStore(rdb), func() {}, nil
	}
	db, err := repository.OpenBadger(cfg.BadgerDir)
	if err != nil {
		return nil, nil, err
	}
	log.Info("saved configurations in badger", zap.String("dir", cfg.BadgerDir))
	return repository.NewBadgerConfigStore(db), func() { _ = db.Close() }, nil
}

// requestLogger routes echo's access log into zap.
func requestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.Error != nil {
				log.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			log.Info("request", fields...)
			return nil
		},
	})
}
