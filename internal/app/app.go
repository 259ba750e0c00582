// Package app assembles the reservation system from configuration.  Both
// the HTTP server and the interactive chat command start from Build.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/restaurant-reservation/internal/agent"
	"github.com/iliyamo/restaurant-reservation/internal/catalog"
	"github.com/iliyamo/restaurant-reservation/internal/config"
	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/router"
	"github.com/iliyamo/restaurant-reservation/internal/service"
	"github.com/iliyamo/restaurant-reservation/internal/tools"
)

// App holds the wired components.  Optional parts are nil when their
// backing service is disabled or unreachable: Agent without model
// credentials, Publisher without RabbitMQ, Redis without a Redis server.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Store      *repository.ReservationStore
	Service    *service.ReservationService
	Dispatcher *tools.Dispatcher
	Agent      *agent.Agent
	Publisher  *queue.Publisher
	Redis      *redis.Client
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Build loads the catalog and the reservation file and connects the
// optional backends.  Only a catalog failure is fatal.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	cat, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("catalog loaded", "source", cfg.CatalogSource, "restaurants", cat.Len())

	a.Store, err = repository.OpenReservationStore(cfg.ReservationsFile, repository.WithPersistObserver(a.Metrics.ObservePersist))
	if err != nil {
		// A corrupt file must not keep the service down; it starts empty
		// and the next successful write replaces the file.
		logger.Error("reservations file unreadable, starting empty", "path", a.Store.Path(), "error", err)
	} else if err := a.Store.Persist(); err != nil {
		// Rewriting what was just loaded surfaces an unwritable data dir
		// at startup instead of on the first booking.
		logger.Warn("reservations file not writable", "path", a.Store.Path(), "error", err)
	}
	logger.Info("reservations loaded", "path", a.Store.Path(), "count", a.Store.Len())

	opts := []service.Option{service.WithMetrics(a.Metrics), service.WithLogger(logger)}
	if cfg.Queue.EventsEnabled {
		pub, err := queue.NewPublisher(cfg.Queue.URL(), cfg.Queue.Queue)
		if err != nil {
			logger.Warn("event publishing disabled", "error", err)
		} else {
			a.Publisher = pub
			opts = append(opts, service.WithEvents(pub))
		}
	}
	a.Service = service.New(cat, a.Store, opts...)
	a.Dispatcher = tools.NewDispatcher(a.Service, a.Metrics, logger)

	if key := cfg.LLM.Key(); key != "" {
		a.Agent = agent.New(agent.NewClient(key, cfg.LLM.BaseURL), a.Dispatcher, tools.Definitions(), agent.Config{
			Model:         cfg.LLM.Model,
			MaxToolRounds: cfg.LLM.MaxToolRounds,
			MaxHistory:    cfg.LLM.MaxHistory,
		}, logger)
	} else {
		logger.Warn("no OPENAI_API_KEY or GITHUB_TOKEN set, chat disabled")
	}

	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		if a.Redis = config.NewRedisClient(ctx, cfg.Redis); a.Redis == nil {
			logger.Warn("redis unreachable, response cache off and rate limits kept in process", "addr", cfg.Redis.Address())
		}
	}
	return a, nil
}

func loadCatalog(ctx context.Context, cfg config.Config) (*catalog.Catalog, error) {
	switch cfg.CatalogSource {
	case config.CatalogMySQL:
		db, err := database.Open(ctx, cfg.CatalogDSN)
		if err != nil {
			return nil, fmt.Errorf("open catalog database: %w", err)
		}
		defer db.Close()
		return catalog.LoadFromDB(ctx, db)
	default:
		return catalog.LoadCSV(cfg.CatalogFile)
	}
}

// NewEcho returns an Echo server with every route registered.
func (a *App) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				a.Logger.Error("request", append(attrs, "error", v.Error)...)
				return nil
			}
			a.Logger.Info("request", attrs...)
			return nil
		},
	}))

	assistant := &handler.AssistantHandler{Tools: a.Dispatcher}
	if a.Agent != nil {
		assistant.Agent = a.Agent
	}
	d := router.Deps{
		Restaurants:  handler.NewRestaurantHandler(a.Service),
		Reservations: handler.NewReservationHandler(a.Service),
		Assistant:    assistant,
		Metrics:      promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
	}
	if a.Config.RateLimit.Enabled {
		d.RateLimit = middleware.NewTokenBucket(a.Config.RateLimit, a.Redis)
	}
	if a.Config.Cache.Enabled && a.Redis != nil {
		d.Cache = middleware.NewRedisCache(a.Config.Cache, a.Redis)
	}
	router.RegisterRoutes(e, d)
	return e
}

// Close releases the backends.  It is safe to call on a partially built App.
func (a *App) Close() error {
	var errs []error
	if a.Publisher != nil {
		errs = append(errs, a.Publisher.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 10 * time.Second
