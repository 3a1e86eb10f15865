package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/pharmacy-counter/internal/cfg"
	v1Grpc "github.com/DRSN-tech/pharmacy-counter/internal/delivery/v1/grpc"
	v1Http "github.com/DRSN-tech/pharmacy-counter/internal/delivery/v1/http"
	"github.com/DRSN-tech/pharmacy-counter/internal/infrastructure/inventory"
	"github.com/DRSN-tech/pharmacy-counter/internal/infrastructure/kafka"
	minioInfra "github.com/DRSN-tech/pharmacy-counter/internal/infrastructure/minio"
	s3Repo "github.com/DRSN-tech/pharmacy-counter/internal/repository/minio"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/pharmacy-counter/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/pharmacy-counter/internal/repository/redis"
	redisConv "github.com/DRSN-tech/pharmacy-counter/internal/repository/redis/converter"
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/clients"
	"github.com/DRSN-tech/pharmacy-counter/pkg/closer"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/DRSN-tech/pharmacy-counter/pkg/postgres"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	initTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
	topicTimeout    = 10 * time.Second
)

// App держит собранные компоненты и порядок их остановки.
type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	counter *usecase.CounterUseCase
	worker  *kafka.OutboxWorker
	httpSrv *v1Http.Server
	grpcSrv *v1Grpc.GRPCServer
}

// NewApp подключает хранилища и собирает сервис. Ресурсы регистрируются в closer
// по мере создания, при ошибке уже открытое закрывается.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		closer: closer.NewCloser(0),
	}

	if err := a.init(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := a.closer.Close(ctx); cerr != nil {
			logger.Warnf("cleanup after failed init: %v", cerr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	db, err := initPGDB(ctx, a.logger, a.cfg)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("postgres", db.Close)

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.Add("redis", func(context.Context) error { return redisClient.Close() })
	if err := redisClient.Ping(ctx); err != nil {
		a.logger.Errorf(err, "failed to connect to redis")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize minio client")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if err := clients.EnsureBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
		a.logger.Errorf(err, "failed to initialize MinIO bucket")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	producer, err := kafka.NewProducer(a.logger, a.cfg.Kafka)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize kafka producer")
		return e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("kafka producer", func(context.Context) error { return producer.Close() })
	if err := producer.EnsureTopic(topicTimeout); err != nil {
		// Выдачи копятся в outbox и уйдут, когда брокер поднимется.
		a.logger.Warnf("kafka topic is not ready: %v", err)
	}

	// Склад
	outboxRepo := pgdb.NewOutboxEventRepo(db.Pool, pgdbConv.NewOutboxEventConverter())
	fulfillment := usecase.NewFulfillmentUC(
		pgdb.NewProductRepo(db.Pool, pgdbConv.NewProductConverter()),
		pgdb.NewIssueRepo(db.Pool, pgdbConv.NewIssueConverter()),
		outboxRepo,
		db.Pool,
		kafka.NewIssueEventEncoder(),
		a.logger.With("component", "fulfillment"),
	)
	inventoryClient := inventory.NewClient(fulfillment, a.cfg.Counter, a.logger)

	a.worker = kafka.NewOutboxWorker(outboxRepo, a.logger.With("component", "outbox"), producer, db.Dsn)

	// Прилавок
	snapshots := redis.NewCacheRepo(redisClient, redisConv.NewProductConverter(), a.cfg.Redis, a.logger)
	ledger := redis.NewPrescriptionLedger(redisClient, a.cfg.Redis)
	sink := minioInfra.NewDocumentExporter(s3Repo.NewDocumentRepo(minioClient, a.cfg.Minio), a.cfg.Minio, a.logger)
	// одна политика налога на корзину и на документы
	var tax usecase.TaxPolicy = usecase.ZeroTax{}
	renderer := usecase.NewDocumentRenderer(usecase.PharmacyIdentity{
		Name:    a.cfg.Pharmacy.Name,
		Address: a.cfg.Pharmacy.Address,
		Phone:   a.cfg.Pharmacy.Phone,
		License: a.cfg.Pharmacy.License,
	}, tax)

	a.counter = usecase.NewCounterUC(
		inventoryClient,
		snapshots,
		ledger,
		sink,
		renderer,
		tax,
		a.logger,
		usecase.CounterOptions{
			SubmitTimeout:  a.cfg.Counter.SubmitTimeout,
			SearchDebounce: a.cfg.Counter.SearchDebounce,
		},
	)

	r := chi.NewRouter()
	v1Http.NewRouter(r, a.logger).Init(a.counter)
	a.httpSrv = v1Http.NewServer(r, a.cfg.Http, a.logger.With("component", "http"))
	a.grpcSrv = v1Grpc.NewGRPCServer(a.cfg.Grpc, a.logger)

	return nil
}

// Run запускает серверы и воркер, ждёт сигнала или фатальной ошибки и останавливает всё в обратном порядке.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.worker.Start(ctx)
	a.closer.AddSimple("outbox worker", a.worker.Stop)

	grpcErrCh := make(chan error, 1)
	go func() {
		a.logger.Infof("gRPC server starting on %s:%s", a.cfg.Grpc.NetworkMode, a.cfg.Grpc.Port)
		if err := a.grpcSrv.Start(); err != nil {
			grpcErrCh <- err
		}
	}()
	a.closer.Add("grpc server", a.grpcSrv.Stop)

	httpErrCh := make(chan error, 1)
	go func() {
		if err := a.httpSrv.Run(); err != nil {
			httpErrCh <- err
		}
	}()
	a.closer.Add("http server", a.httpSrv.Stop)

	go a.warmUp(ctx)

	var appErr error
	select {
	case appErr = <-httpErrCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case appErr = <-grpcErrCh:
		a.logger.Errorf(appErr, "gRPC server fatal error")
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown error")
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

// warmUp повторяет первую загрузку каталога, пока она не удастся. До этого health отвечает NOT_SERVING.
func (a *App) warmUp(ctx context.Context) {
	const retryEvery = 5 * time.Second

	for {
		err := a.counter.WarmUp(ctx)
		if err == nil {
			a.grpcSrv.SetServing(true)
			return
		}
		a.logger.Warnf("catalog warm-up failed, retrying in %v: %v", retryEvery, err)

		select {
		case <-time.After(retryEvery):
		case <-ctx.Done():
			return
		}
	}
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	db, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := db.RunMigrations(logger); err != nil {
		logger.Errorf(err, "failed to run migrations")
		db.Close()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}
