package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/bagstore/internal/admin"
	"github.com/ariefcatur/bagstore/internal/auth"
	"github.com/ariefcatur/bagstore/internal/config"
	"github.com/ariefcatur/bagstore/internal/httpx"
	"github.com/ariefcatur/bagstore/internal/inventory"
	kafkax "github.com/ariefcatur/bagstore/internal/kafka"
	"github.com/ariefcatur/bagstore/internal/notify"
	"github.com/ariefcatur/bagstore/internal/observability"
	"github.com/ariefcatur/bagstore/internal/orders"
	"github.com/ariefcatur/bagstore/internal/orders/memstore"
	"github.com/ariefcatur/bagstore/internal/placement"
	"github.com/ariefcatur/bagstore/internal/postgres"
	"github.com/ariefcatur/bagstore/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// backend is the store and event wiring chosen by STORE_DRIVER.
type backend struct {
	catalog  orders.CatalogStore
	ledger   orders.LedgerStore
	profiles orders.ProfileStore

	placed   orders.Publisher
	status   orders.Publisher
	adjusted orders.Publisher

	close func()
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	otelShutdown, err := observability.Setup(ctx, observability.Options{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OtelEndpoint,
		AuthHeader:  cfg.OtelAuthHeader,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	logger, err := observability.NewLogger(cfg.ServiceName, cfg.LogLevel, cfg.OtelEndpoint != "")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Redis: sessions, idempotency fast path, alert feed
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := redisx.Ping(ctx, rdb); err != nil {
		logger.Fatal("redis", zap.Error(err))
	}

	var be backend
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		be = openMemory(cfg, rdb, logger)
	default:
		be, err = openPostgres(ctx, cfg, logger)
		if err != nil {
			logger.Fatal("postgres", zap.Error(err))
		}
	}

	inv := &inventory.Service{
		Catalog:     be.catalog,
		Events:      be.adjusted,
		ServiceName: cfg.ServiceName,
		Log:         logger.Named("inventory"),
	}
	router := httpx.NewRouter(&auth.Authenticator{
		Sessions: &redisx.SessionStore{Redis: rdb},
		Staff:    be.profiles,
	}, logger.Named("http"))
	(&httpx.OrdersHandler{
		Placement: &placement.Service{
			Catalog:  be.catalog,
			Ledger:   be.ledger,
			Profiles: be.profiles,
			Events:   be.placed,
			Policy: placement.Policy{
				EnforceStock:     cfg.EnforceStock(),
				DecrementOnOrder: cfg.DecrementOnOrder,
			},
			ServiceName: cfg.ServiceName,
			Log:         logger.Named("placement"),
		},
		Inventory: inv,
		Idem:      &redisx.IdempotencyCache{Redis: rdb},
		Log:       logger.Named("http"),
	}).Register(router)
	(&httpx.AdminHandler{
		Admin: &admin.Service{
			Catalog:     be.catalog,
			Ledger:      be.ledger,
			Alerts:      &redisx.AlertFeed{Redis: rdb, Size: cfg.AlertFeedSize},
			Events:      be.status,
			ServiceName: cfg.ServiceName,
			Log:         logger.Named("admin"),
		},
		Inventory: inv,
		Log:       logger.Named("http"),
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("http listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store_driver", cfg.StoreDriver),
			zap.String("stock_policy", cfg.StockPolicy),
			zap.Bool("decrement_on_order", cfg.DecrementOnOrder))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	be.close()
	cancel()
	if err := otelShutdown(ctx2); err != nil {
		logger.Warn("otel shutdown", zap.Error(err))
	}
}

func openPostgres(ctx context.Context, cfg config.Config, logger *zap.Logger) (backend, error) {
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.ServiceName)
	if err != nil {
		return backend{}, err
	}

	producers := []*kafkax.Producer{
		kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger),
		kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatusChanged, 1024, logger),
		kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStockAdjusted, 1024, logger),
	}
	for _, p := range producers {
		p.Start()
	}

	return backend{
		catalog:  &orders.CatalogRepo{DB: db},
		ledger:   &orders.LedgerRepo{DB: db},
		profiles: &orders.ProfileRepo{DB: db},
		placed:   producers[0],
		status:   producers[1],
		adjusted: producers[2],
		close: func() {
			for _, p := range producers {
				p.Close() // flush queued events
			}
			for _, p := range producers {
				p.WaitClosed()
			}
			db.Close()
		},
	}, nil
}

// openMemory keeps everything in process. Events go straight to the notifier, so the
// staff alert feed still fills without Kafka.
func openMemory(cfg config.Config, rdb *redis.Client, logger *zap.Logger) backend {
	store := memstore.New()
	notifier := &notify.Service{
		Alerts: &redisx.AlertFeed{Redis: rdb, Size: cfg.AlertFeedSize},
		Dedup:  &redisx.Deduper{Redis: rdb, Service: cfg.ServiceName + "-notifier"},
		Log:    logger.Named("notify"),
	}
	events := &memstore.Events{Deliver: notifier.Handle}
	for _, id := range cfg.DevStaff {
		_ = store.GrantStaff(context.Background(), id)
	}
	logger.Warn("memory store in use, data is lost on restart", zap.Strings("dev_staff", cfg.DevStaff))
	return backend{
		catalog:  store,
		ledger:   store,
		profiles: store,
		placed:   events,
		status:   events,
		adjusted: events,
		close:    func() {},
	}
}
