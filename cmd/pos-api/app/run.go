package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/aq2208/gorder-pos/configs"
	"github.com/aq2208/gorder-pos/internal/adapter/cache"
	"github.com/aq2208/gorder-pos/internal/adapter/filestore"
	"github.com/aq2208/gorder-pos/internal/adapter/http"
	"github.com/aq2208/gorder-pos/internal/adapter/http/middleware"
	"github.com/aq2208/gorder-pos/internal/adapter/kafka"
	"github.com/aq2208/gorder-pos/internal/adapter/memstore"
	"github.com/aq2208/gorder-pos/internal/adapter/observ"
	"github.com/aq2208/gorder-pos/internal/adapter/queue"
	"github.com/aq2208/gorder-pos/internal/adapter/repo"
	"github.com/aq2208/gorder-pos/internal/i18n"
	"github.com/aq2208/gorder-pos/internal/invoice"
	"github.com/aq2208/gorder-pos/internal/logging"
	"github.com/aq2208/gorder-pos/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	server          *nethttp.Server
	shutdownTimeout time.Duration
	workers         []worker
}

type worker struct {
	name string
	run  func(ctx context.Context) error
}

// storage bundles whichever backend storage.driver selects.
type storage struct {
	store     usecase.Store
	outbox    usecase.OutboxQueue
	employees usecase.EmployeeDirectory
}

func InitWithConfig(ctx context.Context, cfg configs.Config) (*App, func(), error) {
	log := logging.New("bootstrap")
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}
	fail := func(err error) (*App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}
	mode, err := usecase.ParseInventoryMode(cfg.Checkout.InventoryMode)
	if err != nil {
		return fail(err)
	}

	// storage
	st, db, err := openStorage(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
	}

	// redis: idempotency + order cache, in-process fallback
	var (
		idem       usecase.IdempotencyStore = memstore.NewIdempotency(cfg.Idempotency.TTL)
		orderCache usecase.OrderCache
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fail(fmt.Errorf("redis ping: %w", err))
		}
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		orderCache = cache.NewRedisOrderCache(rdb, cfg.Cache.TTL)
	} else {
		log.Warn("redis disabled: idempotency keys are kept in process")
	}

	metrics := observ.NewMetrics(prometheus.DefaultRegisterer)
	tr := i18n.New(cfg.App.Locale, cfg.Invoice.Currency)

	// invoices
	docs, err := filestore.NewInvoiceStore(cfg.Invoice.Dir)
	if err != nil {
		return fail(err)
	}
	pdfOpts := []invoice.Option{invoice.WithLocation(loc)}
	if cfg.Invoice.FontPath != "" {
		pdfOpts = append(pdfOpts, invoice.WithFont(cfg.Invoice.FontPath))
	}
	renderer := invoice.NewPDFRenderer(tr, pdfOpts...)
	invoices := usecase.NewInvoices(st.store.Orders(), st.store.Customers(), st.employees, renderer, docs, metrics)

	checkoutOpts := []usecase.CheckoutOption{
		usecase.WithInventoryMode(mode),
		usecase.WithIdempotency(idem),
		usecase.WithMetrics(metrics),
	}

	a := &App{shutdownTimeout: cfg.HTTP.ShutdownTimeout}

	// rabbitmq: invoice.requested producer + consumer
	if cfg.Rabbit.URL != "" {
		conn, err := amqp.Dial(cfg.Rabbit.URL)
		if err != nil {
			return fail(fmt.Errorf("rabbitmq dial: %w", err))
		}
		closers = append(closers, func() { _ = conn.Close() })

		topo := queue.Topology{Exchange: cfg.Rabbit.Exchange, Queue: cfg.Rabbit.Queue, RoutingKey: cfg.Rabbit.RoutingKey}
		pubCh, err := conn.Channel()
		if err != nil {
			return fail(err)
		}
		if err := queue.DeclareTopology(pubCh, topo); err != nil {
			return fail(fmt.Errorf("rabbitmq topology: %w", err))
		}
		producer, err := queue.NewRabbitProducer(pubCh, topo)
		if err != nil {
			return fail(err)
		}
		checkoutOpts = append(checkoutOpts, usecase.WithInvoiceJobs(producer))

		// consumers get their own channel so confirms and deliveries don't interleave
		subCh, err := conn.Channel()
		if err != nil {
			return fail(err)
		}
		routerOpts := []queue.RouterOption{queue.WithRequeue(true)}
		if cfg.Rabbit.Prefetch > 0 {
			routerOpts = append(routerOpts, queue.WithPrefetch(cfg.Rabbit.Prefetch))
		}
		if cfg.Checkout.Timeout > 0 {
			routerOpts = append(routerOpts, queue.WithTimeout(cfg.Checkout.Timeout))
		}
		router := queue.NewRouter(subCh, routerOpts...)
		router.Register(cfg.Rabbit.Queue, queue.NewInvoiceRequestedHandler(invoices))
		a.workers = append(a.workers, worker{name: "invoice-queue", run: router.Run})
	} else {
		log.Warn("rabbitmq disabled: failed invoices wait for manual regeneration")
	}

	// kafka: outbox relay + invoice backfill
	if len(cfg.Kafka.Brokers) > 0 {
		sp, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			return fail(fmt.Errorf("kafka producer: %w", err))
		}
		pub := kafka.NewPublisher(sp, map[string]string{usecase.ChannelOrderCompleted: cfg.Kafka.TopicEvents})
		closers = append(closers, func() { _ = pub.Close() })

		relay := usecase.NewOutboxRelay(st.outbox, pub, usecase.RelayConfig{
			BatchSize:    cfg.Outbox.BatchSize,
			PollInterval: cfg.Outbox.PollInterval,
			Lease:        cfg.Outbox.Lease,
		}, metrics)
		a.workers = append(a.workers, worker{name: "outbox-relay", run: relay.Run})

		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.ClientID, cfg.Kafka.ConsumerGroup)
		if err != nil {
			return fail(fmt.Errorf("kafka group: %w", err))
		}
		closers = append(closers, func() { _ = grp.Close() })
		h := kafka.NewOrderCompletedHandler(invoices)
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicEvents}, h.Handle)
		a.workers = append(a.workers, worker{name: "invoice-backfill", run: consumer.Start})
	} else {
		log.Warn("kafka disabled: order.completed events stay in the outbox")
	}

	// use cases
	checkout := usecase.NewCheckout(st.store, invoices, checkoutOpts...)
	seq := usecase.NewSequenceGenerator(st.store.Products(), time.Now, loc)
	createProduct := usecase.NewCreateProduct(st.store.Products(), seq, time.Now)
	catalog := usecase.NewCatalog(st.store.Products(), 0)
	customers := usecase.NewCustomerDirectory(st.store.Customers())
	orders := usecase.NewOrderQueries(st.store.Orders(), orderCache)

	// http
	authz := middleware.NewAuthz(middleware.AuthzConfig{
		Secret:   cfg.Security.JWTSecret,
		Issuer:   cfg.Security.Issuer,
		Audience: cfg.Security.Audience,
	})
	router := http.NewRouter(http.Handlers{
		Checkout: http.NewCheckoutHandler(checkout, tr, cfg.Checkout.Timeout),
		Invoices: http.NewInvoiceHandler(invoices, tr),
		Catalog:  http.NewCatalogHandler(createProduct, catalog, customers, tr),
		Orders:   http.NewOrderHandler(orders, tr),
		Reports:  http.NewReportHandler(usecase.NewReports(st.store.Orders(), st.store.Customers(), loc, time.Now), tr),
		Metrics:  metrics,
	}, authz)

	a.server = &nethttp.Server{
		Addr:         cfg.App.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return a, cleanup, nil
}

func openStorage(ctx context.Context, cfg configs.Config) (storage, *sql.DB, error) {
	if cfg.Storage.Driver == "memory" {
		st := memstore.New()
		return storage{store: st, outbox: st, employees: st}, nil, nil
	}

	db, err := repo.OpenMySQL(ctx, cfg.MySQL.DSN, repo.PoolConfig{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
	})
	if err != nil {
		return storage{}, nil, fmt.Errorf("mysql: %w", err)
	}
	if cfg.MySQL.Migrate {
		if err := repo.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return storage{}, nil, fmt.Errorf("mysql migrate: %w", err)
		}
	}
	return storage{
		store:     repo.NewMySQLStore(db),
		outbox:    repo.NewMySQLOutboxRepo(db),
		employees: repo.NewMySQLEmployeeDirectory(db),
	}, db, nil
}

// Run serves HTTP and runs the background workers until ctx is cancelled,
// then drains the server. The first worker error stops everything.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := a.shutdownTimeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), timeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	for _, w := range a.workers {
		w := w
		g.Go(func() error {
			wctx := logging.WithCtx(gctx, logging.New(w.name))
			if err := w.run(wctx); err != nil {
				return fmt.Errorf("%s: %w", w.name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
