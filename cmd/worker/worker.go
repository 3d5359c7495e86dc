package main

import (
	"context"

	"github.com/ritesh-1918/SHEM-GDG/internal/anomaly"
	"github.com/ritesh-1918/SHEM-GDG/internal/appliance"
	"github.com/ritesh-1918/SHEM-GDG/internal/baseline"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"github.com/ritesh-1918/SHEM-GDG/internal/feedback"
	"github.com/ritesh-1918/SHEM-GDG/internal/forecast"
	"github.com/ritesh-1918/SHEM-GDG/internal/mq"
	"github.com/ritesh-1918/SHEM-GDG/internal/repository"
	"github.com/ritesh-1918/SHEM-GDG/internal/service"
	"github.com/ritesh-1918/SHEM-GDG/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.ProcessorService,
) (*mq.Consumer, error) {
	// Context for the consumer goroutine, cancelled on shutdown
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:    conn,
		Queue:         cfg.RabbitMQ.CommandQueue,
		DLQQueue:      cfg.RabbitMQ.DLQQueue,
		Exchange:      cfg.RabbitMQ.CommandExchange,
		RoutingKey:    cfg.RabbitMQ.CommandRoutingKey,
		PrefetchCount: cfg.RabbitMQ.PrefetchCount,
		Logger:        logger,
		Handler:       processor.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting command consumer",
				zap.String("queue", cfg.RabbitMQ.CommandQueue),
				zap.Int("prefetch", cfg.RabbitMQ.PrefetchCount))
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates a new repository instance
func ProvideRepository(pool *db.Pool) *repository.Repository {
	return repository.NewRepository(pool)
}

// ProvideValidator creates a new validator instance
func ProvideValidator() *validator.Validator {
	return validator.NewValidator()
}

// ProvideBaselineEngine creates a new baseline engine instance
func ProvideBaselineEngine(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *baseline.Engine {
	return baseline.NewEngine(repo, cfg.Baseline, logger)
}

// ProvideAnomalyDetector creates a new anomaly detector instance
func ProvideAnomalyDetector(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *anomaly.Detector {
	return anomaly.NewDetector(repo, cfg.Detection, logger)
}

// ProvideFeedbackAdjuster creates a new feedback adjuster instance
func ProvideFeedbackAdjuster(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *feedback.Adjuster {
	return feedback.NewAdjuster(repo, cfg.Feedback, logger)
}

// ProvideForecastEngine creates a new forecast engine instance
func ProvideForecastEngine(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *forecast.Engine {
	return forecast.NewEngine(repo, cfg.Forecast, cfg.Tariff, logger)
}

// ProvideAppliancePredictor creates a new appliance predictor instance
func ProvideAppliancePredictor(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *appliance.Predictor {
	return appliance.NewPredictor(repo, cfg.Appliance, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}

// ProvidePublisher creates a new publisher instance
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.ReportExchange, cfg.RabbitMQ.ReportRoutingKey, logger)
}

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	v *validator.Validator,
	detector *anomaly.Detector,
	baselines *baseline.Engine,
	adjuster *feedback.Adjuster,
	forecasts *forecast.Engine,
	predictor *appliance.Predictor,
	logger *zap.Logger,
) *service.ProcessorService {
	return service.NewProcessorService(repo, publisher, v, detector, baselines, adjuster, forecasts, predictor, logger)
}
