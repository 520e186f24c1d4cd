package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-circulation/circulation/config"
	"github.com/Astemirdum/library-circulation/circulation/internal/handler"
	"github.com/Astemirdum/library-circulation/circulation/internal/metrics"
	"github.com/Astemirdum/library-circulation/circulation/internal/repository"
	"github.com/Astemirdum/library-circulation/circulation/internal/server"
	"github.com/Astemirdum/library-circulation/circulation/internal/service"
	"github.com/Astemirdum/library-circulation/circulation/migrations"
	"github.com/Astemirdum/library-circulation/pkg/circuit_breaker"
	"github.com/Astemirdum/library-circulation/pkg/kafka"
	"github.com/Astemirdum/library-circulation/pkg/logger"
	"github.com/Astemirdum/library-circulation/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "circulation")
	defer log.Sync() //nolint:errcheck

	store, reader, closeStore, err := newStores(cfg, log)
	if err != nil {
		log.Fatal("store init", zap.Error(err))
	}

	m := metrics.New()
	opts := []service.Option{
		service.WithObserver(m),
		service.WithDueSoonDays(cfg.Circulation.DueSoonDays),
	}
	var publisher *service.KafkaPublisher
	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		publisher = service.NewKafkaPublisher(producer, kafka.CirculationEventsTopic,
			circuit_breaker.WithOnStateChange(m.BreakerStateChanged))
		opts = append(opts, service.WithPublisher(publisher))
	}
	svc := service.NewService(store, reader, log, opts...)

	scanner := service.NewOverdueScanner(svc.Query, cfg.Circulation.OverdueScanSpec, log, opts...)
	if err := scanner.Start(); err != nil {
		log.Fatal("overdue scanner", zap.Error(err))
	}

	consumeCtx, stopConsume := context.WithCancel(context.Background())
	defer stopConsume()
	var consumer sarama.ConsumerGroup
	if cfg.Kafka.Enabled() {
		consumer, err = kafka.NewConsumer(cfg.Kafka, kafka.CirculationConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		go kafka.Consume(consumeCtx, consumer, handler.NewConsumer(svc.ReturnBook, log), log, kafka.ReturnsTopic)
	}

	h := handler.New(svc, log,
		handler.WithMetrics(m),
		handler.WithDefaultLoanDays(cfg.Circulation.DefaultLoanDays),
	)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)),
		zap.String("store", cfg.Circulation.StoreDriver))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	scanner.Stop(closeCtx)
	stopConsume()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("consumer.Close", zap.Error(err))
		}
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Error("publisher.Close", zap.Error(err))
		}
	}
	closeStore()
	log.Info("Graceful shutdown finished")
}

func newStores(cfg *config.Config, log *zap.Logger) (repository.Store, repository.Reader, func(), error) {
	if cfg.Circulation.StoreDriver == config.StoreDriverMemory {
		mem := repository.NewMemoryStore()
		return mem, mem, func() {}, nil
	}

	ctx := context.Background()
	pool, err := postgres.NewPostgresDB(ctx, &cfg.Database, migrations.MigrationFiles)
	if err != nil {
		return nil, nil, nil, err
	}
	readDB, err := postgres.NewReadDB(ctx, &cfg.Database)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	closeStore := func() {
		pool.Close()
		if err := readDB.Close(); err != nil {
			log.Error("readDB.Close", zap.Error(err))
		}
	}
	return repository.NewPostgresStore(pool, log), repository.NewReadRepository(readDB, log), closeStore, nil
}
