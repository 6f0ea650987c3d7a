package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appCatalog "github.com/h4food/foodmarket/internal/application/catalog"
	appInventory "github.com/h4food/foodmarket/internal/application/inventory"
	appOrder "github.com/h4food/foodmarket/internal/application/order"
	appUser "github.com/h4food/foodmarket/internal/application/user"
	"github.com/h4food/foodmarket/internal/config"
	domcatalog "github.com/h4food/foodmarket/internal/domain/catalog"
	domorder "github.com/h4food/foodmarket/internal/domain/order"
	domuser "github.com/h4food/foodmarket/internal/domain/user"
	"github.com/h4food/foodmarket/internal/infrastructure/id"
	"github.com/h4food/foodmarket/internal/infrastructure/kafka"
	"github.com/h4food/foodmarket/internal/infrastructure/memory"
	"github.com/h4food/foodmarket/internal/infrastructure/mongostore"
	infraobs "github.com/h4food/foodmarket/internal/infrastructure/observability"
	"github.com/h4food/foodmarket/internal/infrastructure/observability/oteltrace"
	"github.com/h4food/foodmarket/internal/infrastructure/observability/prometrics"
	"github.com/h4food/foodmarket/internal/infrastructure/observability/zaplogger"
	"github.com/h4food/foodmarket/internal/infrastructure/outbox"
	"github.com/h4food/foodmarket/internal/infrastructure/postgres"
	"github.com/h4food/foodmarket/internal/infrastructure/rediscache"
	"github.com/h4food/foodmarket/internal/observability"
	"github.com/h4food/foodmarket/internal/pkg/logging"
	httppresentation "github.com/h4food/foodmarket/internal/presentation/http"
	workerpresentation "github.com/h4food/foodmarket/internal/presentation/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "foodmarket:", err)
		os.Exit(1)
	}
}

// stores is the selected persistence backend plus its shutdown hook.
type stores struct {
	catalog domcatalog.Repository
	orders  domorder.Repository
	users   domuser.Repository
	close   func(context.Context)
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return err
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := oteltrace.Setup(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	systemLogger := zaplogger.Wrap(baseLogger)
	tel, err := infraobs.NewPrometheus(oteltrace.New(cfg.ServiceName), systemLogger, prometrics.New(reg, ""))
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, systemLogger)
	if err != nil {
		return err
	}
	defer st.close(context.Background())

	catalogRepo := st.catalog
	var counter domcatalog.Counter = catalogRepo
	var idem appOrder.IdempotencyStore = memory.NewIdempotencyStore(rediscache.TTLIdempotency)
	if cfg.RedisAddr != "" {
		rdb, err := rediscache.New(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()

		cache := rediscache.NewCountCache(rdb, catalogRepo, cfg.CountCacheTTL, tel)
		catalogRepo = rediscache.NewCachedRepository(catalogRepo, cache)
		counter = cache
		idem = rediscache.NewIdempotencyStore(rdb, rediscache.TTLIdempotency)
		systemLogger.Info("redis_enabled", observability.F("addr", cfg.RedisAddr))
	}

	// In-memory event bus; the Kafka relay forwards selected events off-process.
	bus := outbox.NewBus(systemLogger)
	events := workerpresentation.NewSubscriber(bus, systemLogger)

	appInventory.NewWorker(events, tel).Start()
	appOrder.NewWorker(events, tel).Start()

	var relay *kafka.Relay
	if len(cfg.KafkaBrokers) > 0 {
		relay = kafka.NewRelay(kafka.NewWriter(cfg.KafkaBrokers), events, cfg.ServiceName, tel)
		relay.Start()
		systemLogger.Info("kafka_relay_enabled", observability.F("brokers", cfg.KafkaBrokers))
	}
	bus.Start(ctx)

	ledger := appInventory.NewPurchaseUseCase(catalogRepo, bus, tel)
	orders := st.orders
	handler := httppresentation.NewHandler(httppresentation.Services{
		Catalog: appCatalog.NewService(catalogRepo, tel),
		Queries: appCatalog.NewQueryService(catalogRepo, tel,
			appCatalog.WithPageSize(cfg.CatalogPageSize),
			appCatalog.WithTopSellingLimit(cfg.TopSellingLimit),
			appCatalog.WithCounter(counter),
		),
		Purchase:    ledger,
		PlaceOrder:  appOrder.NewPlaceOrderUseCase(ledger, orders, idem, id.NewUUIDGenerator(), bus, tel),
		CancelOrder: appOrder.NewCancelOrderUseCase(orders, bus, tel),
		ListOrders:  appOrder.NewListByPurchaserUseCase(orders, tel),
		Register:    appUser.NewRegisterUseCase(st.users, tel),
	}, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), tel)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
			observability.F("store_backend", cfg.StoreBackend),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error", observability.F("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
	// Drain queued events before the relay's writer goes away.
	if err := bus.Stop(shutdownCtx); err != nil {
		systemLogger.Warn("event_bus_stop_error", observability.F("error", err))
	}
	if relay != nil {
		if err := relay.Close(); err != nil {
			systemLogger.Warn("kafka_relay_close_error", observability.F("error", err))
		}
	}
	return nil
}

func openStores(ctx context.Context, cfg config.Config, logger observability.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.StoreTimeout)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(context.Background())
			return nil, err
		}
		logger.Info("store_connected", observability.F("backend", cfg.StoreBackend))
		return &stores{
			catalog: mongostore.NewCatalogRepository(store),
			orders:  mongostore.NewOrderRepository(store),
			users:   mongostore.NewUserRepository(store),
			close:   func(ctx context.Context) { _ = store.Close(ctx) },
		}, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("store_connected", observability.F("backend", cfg.StoreBackend))
		return &stores{
			catalog: postgres.NewCatalogRepository(pool, cfg.StoreTimeout),
			orders:  postgres.NewOrderRepository(pool, cfg.StoreTimeout),
			users:   postgres.NewUserRepository(pool, cfg.StoreTimeout),
			close:   func(context.Context) { pool.Close() },
		}, nil

	default:
		logger.Warn("store_in_memory", observability.F("note", "data is lost on restart"))
		return &stores{
			catalog: memory.NewCatalogRepository(),
			orders:  memory.NewOrderRepository(),
			users:   memory.NewUserRepository(),
			close:   func(context.Context) {},
		}, nil
	}
}
