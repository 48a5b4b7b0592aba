package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/gearshare/internal/config"
	"github.com/iliyamo/gearshare/internal/database"
	"github.com/iliyamo/gearshare/internal/handler"
	"github.com/iliyamo/gearshare/internal/middleware"
	"github.com/iliyamo/gearshare/internal/queue"
	"github.com/iliyamo/gearshare/internal/repository"
	"github.com/iliyamo/gearshare/internal/router"
	"github.com/iliyamo/gearshare/internal/service"
	"github.com/iliyamo/gearshare/internal/session"
	"github.com/iliyamo/gearshare/internal/view"
)

func main() {
	cfg := config.Load() // Load environment config
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable: rate limiting and page cache disabled")
	} else {
		defer rdb.Close()
	}

	store := openStore(ctx, cfg, rdb, logger)
	sessions := session.NewManager(store, cfg.SessionTTL, logger)

	client, err := repository.NewClient(repository.ClientConfig{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		MaxRPS:  cfg.APIMaxRPS,
		Burst:   cfg.APIBurst,
		Logger:  logger,
	}, sessions)
	if err != nil {
		log.Fatal(err)
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		pub := queue.NewAMQPPublisher(cfg.AMQPURL, logger)
		defer pub.Close()
		events = pub
	}
	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartActivityConsumer(ctx, cfg.AMQPURL, cfg.ActivityLogDir, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("activity consumer stopped", "err", err)
			}
		}()
	}

	items := service.NewItemService(repository.NewItemRepo(client))
	reviews := service.NewReviewService(repository.NewReviewRepo(client))
	bookings := service.NewBookingService(repository.NewBookingRepo(client), repository.NewPaymentRepo(client), events, logger)
	auth := service.NewAuthService(repository.NewUserRepo(client), sessions)

	renderer, err := view.New()
	if err != nil {
		log.Fatal(err)
	}
	cookies := middleware.NewSessions(sessions, cfg.CookieName, cfg.CookieSecure, cfg.SessionTTL, logger)

	e := router.New(router.Deps{
		Logger:        logger,
		Renderer:      renderer,
		Sessions:      cookies,
		Redis:         rdb,
		RateLimit:     config.LoadRateLimitConfig(),
		Cache:         config.LoadCacheConfig(),
		Auth:          handler.NewAuthHandler(auth, cookies, logger),
		Browse:        handler.NewBrowseHandler(items, logger),
		Customer:      handler.NewCustomerHandler(items, reviews, bookings, logger),
		Listings:      handler.NewListingHandler(items, logger),
		OwnerBookings: handler.NewOwnerBookingHandler(bookings, logger),
	})

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Env, "api", cfg.APIBaseURL, "sessions", cfg.SessionStore)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
	}
}

// openStore picks the session store. Redis falls back to memory when the
// server is unreachable; MySQL is required once configured.
func openStore(ctx context.Context, cfg config.Config, rdb *redis.Client, logger *slog.Logger) session.Store {
	switch cfg.SessionStore {
	case config.StoreRedis:
		if rdb != nil {
			return session.NewRedisStore(rdb, "gs:sess")
		}
		logger.Warn("SESSION_STORE=redis but redis is unavailable; using memory")
	case config.StoreMySQL:
		db, err := database.Open(ctx, database.Params{
			User: cfg.DBUser,
			Pass: cfg.DBPass,
			Host: cfg.DBHost,
			Port: cfg.DBPort,
			Name: cfg.DBName,
		})
		if err != nil {
			log.Fatalf("mysql: %v", err)
		}
		st := session.NewMySQLStore(db)
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatalf("mysql schema: %v", err)
		}
		go st.RunSweeper(ctx, 10*time.Minute, logger)
		return st
	}
	return session.NewMemoryStore()
}
