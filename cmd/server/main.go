package main // Entry point package

import (
    "context"
    "errors"
    "log" // startup failures before the structured logger exists
    "log/slog"
    "net/http"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"                       // Echo web framework
    echomw "github.com/labstack/echo/v4/middleware"     // request ids and panic recovery
    "golang.org/x/sync/errgroup"

    "github.com/iliyamo/restaurant-reservation/internal/booking"
    "github.com/iliyamo/restaurant-reservation/internal/config"
    "github.com/iliyamo/restaurant-reservation/internal/database"
    "github.com/iliyamo/restaurant-reservation/internal/handler"
    "github.com/iliyamo/restaurant-reservation/internal/jobs"
    "github.com/iliyamo/restaurant-reservation/internal/logger"
    "github.com/iliyamo/restaurant-reservation/internal/middleware"
    "github.com/iliyamo/restaurant-reservation/internal/queue"
    "github.com/iliyamo/restaurant-reservation/internal/repository"
    "github.com/iliyamo/restaurant-reservation/internal/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
    _ = godotenv.Load() // a missing .env is fine; the environment wins

    cfg := config.Load()
    bookingCfg := config.LoadBookingConfig()
    queueCfg := config.LoadQueueConfig()
    lg := logger.NewLogger("restaurant-reservation")

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    db, err := database.Open(cfg)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer db.Close()
    if err := database.Migrate(ctx, db); err != nil {
        log.Fatalf("migrate: %v", err)
    }

    rdb := config.NewRedisClient()
    if rdb == nil {
        lg.Warn(ctx, "startup", "redis unreachable, rate limiting and caching disabled")
    } else {
        defer rdb.Close()
    }

    reservations := repository.NewReservationRepo(db)
    orders := repository.NewOrderRepo(db)
    catalog := repository.NewCatalogRepo(db)

    opts := booking.Options{
        Policy:      bookingCfg.Policy,
        LockTimeout: bookingCfg.LockTimeout,
        MaxWindow:   bookingCfg.MaxWindow,
        Logger:      lg,
    }
    if queueCfg.PublishEnabled {
        pub := queue.NewPublisher(queueCfg, lg)
        defer pub.Close()
        opts.Publisher = pub
    }
    manager := booking.NewManager(reservations, catalog, opts)
    binder := booking.NewOrderBinder(manager, orders, catalog)

    e := echo.New()
    e.HideBanner = true
    e.Use(echomw.RequestID(), echomw.Recover(), middleware.RequestContext(lg))

    router.RegisterRoutes(e, db)
    router.RegisterPublic(e,
        handler.NewPublicHandler(catalog, manager, lg),
        middleware.NewRedisCache(config.LoadCacheConfig(), rdb, lg))
    limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, lg)
    router.RegisterBooking(e,
        handler.NewReservationHandler(manager, lg),
        handler.NewOrderHandler(binder, lg),
        cfg.JWTSecret,
        limiter)
    router.RegisterAdmin(e, handler.NewAdminHandler(manager, binder, lg), cfg.JWTSecret, limiter)

    if bookingCfg.SweepEnabled {
        sched, err := jobs.NewScheduler(bookingCfg.SweepSchedule, jobs.NewSweepJob(manager, lg))
        if err != nil {
            log.Fatalf("sweeper: %v", err)
        }
        sched.Start()
        defer func() { <-sched.Stop().Done() }()
    }

    g, gctx := errgroup.WithContext(ctx)
    g.Go(func() error {
        addr := ":" + cfg.Port
        lg.Info(gctx, "startup", "listening",
            slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("policy", string(manager.Policy())))
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            return err
        }
        return nil
    })
    g.Go(func() error {
        <-gctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
        defer cancel()
        return e.Shutdown(sctx)
    })
    if queueCfg.ConsumerEnabled {
        g.Go(func() error {
            if err := queue.StartAuditConsumer(gctx, queueCfg, lg); err != nil && !errors.Is(err, context.Canceled) {
                return err
            }
            return nil
        })
    }

    if err := g.Wait(); err != nil {
        lg.Error(context.Background(), "shutdown", "server stopped", err)
    }
    lg.Info(context.Background(), "shutdown", "bye")
}
