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

	"github.com/hibiken/asynq"
	"github.com/vogiaan1904/ticketbottle-boxoffice/config"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/auth"
	grpcSvc "github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/grpc"
	httpSvc "github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/http"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka/consumer"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/kafka/producer"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/delivery/task"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/infra/postgres"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/infra/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/metrics"
	pgRepo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/postgres"
	repo "github.com/vogiaan1904/ticketbottle-boxoffice/internal/repository/redis"
	"github.com/vogiaan1904/ticketbottle-boxoffice/internal/service"
	"github.com/vogiaan1904/ticketbottle-boxoffice/pkg/clock"
	pkgKafka "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/kafka"
	pkgLog "github.com/vogiaan1904/ticketbottle-boxoffice/pkg/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	l := pkgLog.InitializeZapLogger(pkgLog.ZapConfig{
		Level:    cfg.Log.Level,
		Mode:     cfg.Log.Mode,
		Encoding: cfg.Log.Encoding,
	})
	defer l.Sync()

	redisCli, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to Redis: %v", err)
	}
	defer redis.Disconnect(redisCli)

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		l.Fatalf(ctx, "Failed to connect to database: %v", err)
	}
	defer postgres.Disconnect(db)

	m := metrics.New()
	clk := clock.New()
	issuer := auth.NewIssuer(cfg.JWT.Secret)

	// Repositories
	qRepo := repo.NewRedisQueueRepository(redisCli, l)
	admRepo := repo.NewRedisAdmissionRepository(redisCli, l)
	ledgerRepo := repo.NewRedisLedgerRepository(redisCli, l)
	catalog := pgRepo.NewCatalogRepository(db)
	sales := pgRepo.NewSaleRepository(db)
	tx := pgRepo.NewTxManager(db)

	// Kafka producer
	prod := producer.NewNoopProducer()
	if cfg.Kafka.Enabled {
		kSyncProd, err := pkgKafka.NewProducer(pkgKafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			RetryMax:     cfg.Kafka.ProducerRetryMax,
			RequiredAcks: cfg.Kafka.ProducerRequiredAcks,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka producer: %v", err)
		}
		prod = producer.NewProducer(kSyncProd, l)
	}
	defer prod.Close()

	// Expiry tasks
	var sched service.ExpiryScheduler
	var taskCli *asynq.Client
	if cfg.Asynq.Enabled {
		taskCli = asynq.NewClient(task.RedisOpt(cfg.Redis))
		defer taskCli.Close()
		sched = task.NewScheduler(taskCli, l)
	}

	// Services
	qSvc := service.NewQueueService(qRepo, clk, m, l)
	admSvc := service.NewAdmissionService(admRepo, qSvc, prod, sched, issuer, clk,
		service.AdmissionConfig{GrantDuration: cfg.Admission.GrantDuration}, m, l)
	ledgerSvc := service.NewLedgerService(ledgerRepo, catalog, sales, tx, m, l)
	payments := service.NewPaymentCapture(pgRepo.NewPaymentRepository(db), tx, clk)
	pSvc := service.NewPurchaseService(admSvc, ledgerSvc, catalog, sales, payments, tx, prod, clk,
		service.PurchaseConfig{MaxPerPurchase: cfg.Admission.MaxPerPurchase}, m, l)
	boxSvc := service.NewBoxOfficeService(qSvc, admSvc, ledgerSvc, pSvc, catalog, sales, prod, clk, l)

	if err := service.NewRecoveryService(catalog, qRepo, admRepo, admSvc, ledgerSvc, sched, l).Recover(ctx); err != nil {
		l.Fatalf(ctx, "Failed to recover sale state: %v", err)
	}

	expProc := service.NewExpiryProcessor(admSvc, admRepo, l, cfg.Admission.ProcessInterval, cfg.Admission.ShutdownTimeout)
	if err := expProc.Start(ctx); err != nil {
		l.Fatalf(ctx, "Failed to start expiry processor: %v", err)
	}

	var taskSrv *task.Server
	if cfg.Asynq.Enabled {
		taskSrv = task.NewServer(task.RedisOpt(cfg.Redis), cfg.Asynq.Concurrency, task.NewHandlers(admSvc, l), l)
		if err := taskSrv.Start(); err != nil {
			l.Fatalf(ctx, "Failed to start task server: %v", err)
		}
	}

	var cons *consumer.Consumer
	if cfg.Kafka.Enabled {
		kConsGr, err := pkgKafka.NewConsumer(pkgKafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.ConsumerGroupID,
		})
		if err != nil {
			l.Fatalf(ctx, "Failed to initialize Kafka consumer: %v", err)
		}
		cons = consumer.NewConsumer(kConsGr, boxSvc, l)
		if err := cons.Start(ctx); err != nil {
			l.Fatalf(ctx, "Failed to start Kafka consumer: %v", err)
		}
	}

	ready := func(ctx context.Context) error {
		if err := redisCli.Ping(ctx).Err(); err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	httpSrv := httpSvc.NewServer(cfg.Server, httpSvc.NewHandler(boxSvc, auth.ContextSession{}, ready, l), issuer, m, l)
	gRpcSrv := grpcSvc.NewServer(cfg.Server.GRpcPort, grpcSvc.NewGrpcService(boxSvc, auth.ContextSession{}, l), issuer, m, l)

	lnr, err := gRpcSrv.Listen()
	if err != nil {
		l.Fatalf(ctx, "gRPC server failed to listen: %v", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gRpcSrv.Serve(lnr)
	})
	g.Go(func() error {
		l.Infof(ctx, "HTTP server is listening on port: %d", cfg.Server.HTTPPort)
		if err := httpSrv.StartServer(httpSrv.Server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		l.Info(context.Background(), "Server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Admission.ShutdownTimeout)
		defer cancel()

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			l.Errorf(shutdownCtx, "HTTP server shutdown: %v", err)
		}
		gRpcSrv.Stop()

		if cons != nil {
			if err := cons.Close(); err != nil {
				l.Errorf(shutdownCtx, "Kafka consumer close: %v", err)
			}
		}
		if taskSrv != nil {
			taskSrv.Shutdown()
		}
		if err := expProc.Stop(); err != nil {
			l.Errorf(shutdownCtx, "Expiry processor stop: %v", err)
		}

		// Let in-flight purchases publish before the producer closes.
		time.Sleep(100 * time.Millisecond)
		return nil
	})

	if err := g.Wait(); err != nil {
		l.Errorf(context.Background(), "Server stopped with error: %v", err)
	}

	l.Info(context.Background(), "Server exited")
}
