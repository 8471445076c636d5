package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"agrimarket/internal/config"
	"agrimarket/internal/http/handlers"
	applog "agrimarket/internal/log"
	"agrimarket/internal/pricing"
	"agrimarket/internal/repos"
	"agrimarket/internal/tracing"
	"agrimarket/internal/translate"
)

func main() {
	cfg := config.Load()

	// Optional file logging
	if f, err := applog.Setup(cfg.LogFile); err != nil {
		log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
	} else if f != nil {
		defer f.Close()
	}

	shutdownTracing, err := tracing.Init(context.Background(), cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		log.Printf("[warn] tracing disabled: %v", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if cfg.SeedDemo {
		if err := repos.SeedDemo(db); err != nil {
			log.Fatal(err)
		}
	}

	// Translation cache is optional
	var cache translate.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("[warn] redis %s unreachable, translation cache off: %v", cfg.RedisAddr, err)
		} else {
			cache = translate.NewRedisCache(rdb, 24*time.Hour)
		}
		cancel()
	}
	tr := translate.New(cfg.TranslateURL, cfg.TranslateKey, cfg.TranslateHost, cfg.UpstreamTimeout, cache)
	pricer := pricing.New(cfg.PricingURL, cfg.PricingKey, cfg.UpstreamTimeout)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    1 << 20, // 1 MiB
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(handlers.Tracing())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			p := c.Path()
			return p == "/healthz" || strings.HasPrefix(p, "/metrics")
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.global.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon", "kind": "validation"})
		},
	}))

	deps := handlers.NewDeps(db, tr, pricer)

	deps.Mount(app, limiter.New(limiter.Config{
		Max:        10,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|accept"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.accept.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon", "kind": "validation"})
		},
	}))

	// Health, metrics & 404
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Page not found", "kind": "not_found"})
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("[server] listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Printf("[server] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("[tracing] shutdown: %v", err)
	}
}
