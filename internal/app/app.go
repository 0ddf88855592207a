// Package app assembles the correspondence service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	archiveHandler "correspondence/internal/archive/handler"
	archiveService "correspondence/internal/archive/service"
	archiveStore "correspondence/internal/archive/store"
	commHandler "correspondence/internal/communication/handler"
	commMetrics "correspondence/internal/communication/metrics"
	commService "correspondence/internal/communication/service"
	commStore "correspondence/internal/communication/store"
	dirService "correspondence/internal/directory/service"
	dirStore "correspondence/internal/directory/store"
	notifHandler "correspondence/internal/notification/handler"
	notifMetrics "correspondence/internal/notification/metrics"
	"correspondence/internal/notification/notifier"
	notifService "correspondence/internal/notification/service"
	notifStore "correspondence/internal/notification/store"
	"correspondence/internal/platform/config"
	"correspondence/internal/platform/httpserver"
	"correspondence/internal/platform/kafka/consumer"
	"correspondence/internal/platform/kafka/producer"
	"correspondence/internal/platform/middleware"
	platformMetrics "correspondence/internal/platform/metrics"
	"correspondence/internal/platform/postgres"
	platformRedis "correspondence/internal/platform/redis"
	procHandler "correspondence/internal/procedure/handler"
	procModels "correspondence/internal/procedure/models"
	procService "correspondence/internal/procedure/service"
	procStore "correspondence/internal/procedure/store"
	"correspondence/pkg/platform/circuit"
	"correspondence/pkg/platform/outbox"
	outboxMemory "correspondence/pkg/platform/outbox/store/memory"
	outboxPostgres "correspondence/pkg/platform/outbox/store/postgres"
	"correspondence/pkg/platform/tx"
)

// claimStaleAfter is how long a notification claim blocks other senders.
const claimStaleAfter = 10 * time.Minute

// Process-wide collectors are registered once; tests build several apps.
var (
	metricsOnce sync.Once
	httpMetrics *platformMetrics.Metrics
	routing     *commMetrics.Metrics
	delivery    *notifMetrics.Metrics
)

func registerMetrics() {
	metricsOnce.Do(func() {
		httpMetrics = platformMetrics.New()
		routing = commMetrics.New()
		delivery = notifMetrics.New()
	})
}

// App holds the wired HTTP handler and background workers.
type App struct {
	Handler   http.Handler
	Directory *dirService.Service
	Relay     *outbox.Relay

	cfg      config.Config
	logger   *slog.Logger
	consumer *consumer.Consumer
	closers  []func()
}

type stores struct {
	directory     dirService.Store
	procedures    procService.Store
	communication commService.Store
	archives      archiveService.Store
	events        outbox.Store
	tx            tx.Manager
}

// New builds the object graph. An empty DATABASE_URL selects in-memory stores;
// without Kafka brokers the relay hands events straight to the local consumer
// router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	registerMetrics()
	a := &App{cfg: cfg, logger: logger}

	var db *sqlx.DB
	if !cfg.InMemory() {
		var err error
		db, err = postgres.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := postgres.Migrate(db); err != nil {
			a.Close()
			return nil, err
		}
	}
	st := buildStores(db, cfg)

	ledger, err := a.buildLedger(ctx, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	directory := dirService.New(st.directory, dirService.WithLogger(logger))
	procedures := procService.New(st.procedures, directory, st.tx, procService.WithLogger(logger))
	commOpts := []commService.Option{
		commService.WithLogger(logger),
		commService.WithMetrics(routing),
		commService.WithTracer(otel.Tracer("correspondence/internal/communication")),
		commService.WithAutoRejectDays(cfg.Routing.AutoRejectDays),
	}
	router := commService.NewRouter(st.communication, procedures, directory, st.tx, commOpts...)
	inbox := commService.NewInbox(st.communication, procedures, directory, st.tx, commOpts...)
	archives := archiveService.New(st.archives, inbox, directory, st.events, st.tx, archiveService.WithLogger(logger))

	gateway := notifier.New(cfg.Notifier.URL, cfg.Notifier.Token, cfg.Notifier.RatePerSec,
		notifier.WithLogger(logger),
		notifier.WithBreaker(circuit.New("notifier")),
	)
	dispatcher := notifService.New(procedures, ledger, gateway,
		notifService.WithLogger(logger),
		notifService.WithMetrics(delivery),
	)

	events := consumer.NewRouter(logger)
	events.Register(procModels.EventProcedureCompleted, notifHandler.NewCompletedHandler(dispatcher, logger))

	publisher, err := a.buildPublisher(ctx, events)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Relay = outbox.NewRelay(st.events, publisher, st.tx, cfg.Kafka.Topic,
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
		outbox.WithRelayLogger(logger),
	)
	a.Directory = directory

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, httpMetrics))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(api chi.Router) {
		api.Use(chimw.Timeout(cfg.Server.RequestTimeout))
		api.Use(middleware.RequireAccount(directory, logger))
		procHandler.New(procedures, logger).Register(api)
		commHandler.New(router, inbox, logger).Register(api)
		archiveHandler.New(archives, logger).Register(api)
		notifHandler.New(dispatcher, logger).Register(api)
	})
	a.Handler = r
	return a, nil
}

func buildStores(db *sqlx.DB, cfg config.Config) stores {
	if db == nil {
		return stores{
			directory:     dirStore.NewInMemory(),
			procedures:    procStore.NewInMemory(),
			communication: commStore.NewInMemory(),
			archives:      archiveStore.NewInMemory(),
			events:        outboxMemory.New(),
			tx:            tx.NewMemory(),
		}
	}
	return stores{
		directory:     dirStore.NewPostgres(db),
		procedures:    procStore.NewPostgres(db),
		communication: commStore.NewPostgres(db),
		archives:      archiveStore.NewPostgres(db),
		events:        outboxPostgres.New(db),
		tx:            tx.NewPostgres(db, cfg.Database.TxTimeout),
	}
}

func (a *App) buildLedger(ctx context.Context, db *sqlx.DB) (notifService.Ledger, error) {
	switch a.cfg.Notifier.Ledger {
	case "redis":
		client, err := platformRedis.New(ctx, a.cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return notifStore.NewRedis(client.Client, claimStaleAfter), nil
	case "postgres":
		if db != nil {
			return notifStore.NewPostgres(db, claimStaleAfter), nil
		}
		a.logger.WarnContext(ctx, "postgres notification ledger needs DATABASE_URL, using memory")
	}
	return notifStore.NewInMemory(claimStaleAfter), nil
}

func (a *App) buildPublisher(ctx context.Context, events *consumer.Router) (outbox.Publisher, error) {
	if len(a.cfg.Kafka.Brokers) == 0 {
		a.logger.InfoContext(ctx, "no kafka brokers configured, delivering events in process")
		return outbox.PublisherFunc(func(ctx context.Context, topic string, key, value []byte, headers map[string]string) error {
			return events.Handle(ctx, &consumer.Message{Topic: topic, Key: key, Value: value, Headers: headers})
		}), nil
	}

	p, err := producer.New(a.cfg.Kafka.Brokers)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, p.Close)

	c, err := consumer.New(a.cfg.Kafka.Brokers, a.cfg.Kafka.Group, a.cfg.Kafka.Topic, events, a.logger)
	if err != nil {
		return nil, err
	}
	a.consumer = c
	return p, nil
}

// Run serves HTTP, consumes events and runs the outbox schedule until ctx is
// cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	srv := httpserver.New(a.cfg.Server.Addr, a.Handler)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "http server listening", "addr", a.cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if a.consumer != nil {
		g.Go(func() error { return a.consumer.Run(ctx) })
	}
	g.Go(func() error { return a.schedule(ctx) })

	return g.Wait()
}

func (a *App) schedule(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(a.cfg.Outbox.Schedule, func() {
		if n, err := a.Relay.Flush(ctx); err != nil {
			a.logger.WarnContext(ctx, "outbox flush failed", "published", n, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("outbox schedule %q: %w", a.cfg.Outbox.Schedule, err)
	}
	if _, err := c.AddFunc(a.cfg.Outbox.PurgeAt, func() {
		n, err := a.Relay.Purge(ctx, a.cfg.Outbox.Retention)
		if err != nil {
			a.logger.WarnContext(ctx, "outbox purge failed", "error", err)
			return
		}
		a.logger.InfoContext(ctx, "outbox purged", "events", n)
	}); err != nil {
		return fmt.Errorf("outbox purge schedule %q: %w", a.cfg.Outbox.PurgeAt, err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
