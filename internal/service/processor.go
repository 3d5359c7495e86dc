package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/anomaly"
	"github.com/ritesh-1918/SHEM-GDG/internal/appliance"
	"github.com/ritesh-1918/SHEM-GDG/internal/baseline"
	"github.com/ritesh-1918/SHEM-GDG/internal/feedback"
	"github.com/ritesh-1918/SHEM-GDG/internal/forecast"
	"github.com/ritesh-1918/SHEM-GDG/internal/logging"
	"github.com/ritesh-1918/SHEM-GDG/internal/mq"
	"github.com/ritesh-1918/SHEM-GDG/internal/repository"
	"github.com/ritesh-1918/SHEM-GDG/internal/validator"
	"go.uber.org/zap"
)

// Command types accepted on the command queue
const (
	CommandStoreReading   = "reading.store"
	CommandRecalcBaseline = "baseline.recalculate"
	CommandFeedback       = "anomaly.feedback"
	CommandForecast       = "forecast.request"
	CommandApplianceScan  = "appliance.scan"
	CommandHistory        = "history.request"
)

// anomalyHistoryLimit caps history queries to the most recent events
const anomalyHistoryLimit = 50

// CommandMessage is the envelope for every inbound command
type CommandMessage struct {
	RequestID  string          `json:"request_id"`
	Type       string          `json:"type"`
	UserID     string          `json:"user_id"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// ReadingPayload carries one hourly consumption reading
type ReadingPayload struct {
	Consumption *float64 `json:"consumption"`
	Hour        *int     `json:"hour"`
	DayOfWeek   string   `json:"day_of_week"`
	Temperature *float64 `json:"temperature"`
	Timestamp   string   `json:"timestamp"`
}

// FeedbackPayload carries user feedback on a flagged anomaly
type FeedbackPayload struct {
	AnomalyID string `json:"anomaly_id"`
	Kind      string `json:"feedback_type"`
	Appliance string `json:"appliance"`
}

// ForecastPayload selects a forecast horizon. Variant day|week|month, or an
// explicit number of days. State selects the tariff rate.
type ForecastPayload struct {
	Variant string `json:"variant"`
	Days    int    `json:"days"`
	State   string `json:"state"`
}

// HistoryPayload selects which read-side report to produce
type HistoryPayload struct {
	Kind string `json:"kind"` // anomalies (default) or baselines
}

// ProcessorService routes command messages to the matching engine and
// publishes a report event for each completed command.
type ProcessorService struct {
	repo      *repository.Repository
	publisher *mq.Publisher
	validator *validator.Validator
	detector  *anomaly.Detector
	baselines *baseline.Engine
	adjuster  *feedback.Adjuster
	forecasts *forecast.Engine
	predictor *appliance.Predictor
	logger    *zap.Logger
}

// NewProcessorService creates a new processor service
func NewProcessorService(
	repo *repository.Repository,
	publisher *mq.Publisher,
	v *validator.Validator,
	detector *anomaly.Detector,
	baselines *baseline.Engine,
	adjuster *feedback.Adjuster,
	forecasts *forecast.Engine,
	predictor *appliance.Predictor,
	logger *zap.Logger,
) *ProcessorService {
	return &ProcessorService{
		repo:      repo,
		publisher: publisher,
		validator: v,
		detector:  detector,
		baselines: baselines,
		adjuster:  adjuster,
		forecasts: forecasts,
		predictor: predictor,
		logger:    logger,
	}
}

// ProcessMessage processes one inbound command. A returned error NACKs the
// message to the DLQ; report publishing failures are logged but never fail
// the command.
func (s *ProcessorService) ProcessMessage(ctx context.Context, body []byte) error {
	var msg CommandMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	reqLogger := logging.WithRequestID(s.logger, msg.RequestID)
	reqLogger.Info("processing command",
		zap.String("type", msg.Type),
		zap.String("user_id", msg.UserID),
	)

	userID, err := uuid.Parse(msg.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", msg.UserID, err)
	}

	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now().UTC()
	}

	var kind string
	var report interface{}

	switch msg.Type {
	case CommandStoreReading:
		kind = mq.ReportKindVerdict
		report, err = s.handleReading(ctx, msg, reqLogger)
	case CommandRecalcBaseline:
		kind = mq.ReportKindBaseline
		report, err = s.baselines.Recalculate(ctx, userID)
	case CommandFeedback:
		kind = mq.ReportKindFeedback
		report, err = s.handleFeedback(ctx, userID, msg.Payload)
	case CommandForecast:
		kind = mq.ReportKindForecast
		report, err = s.handleForecast(ctx, userID, msg.Payload)
	case CommandApplianceScan:
		kind = mq.ReportKindAppliance
		report, err = s.predictor.Predict(ctx, userID)
	case CommandHistory:
		kind = mq.ReportKindHistory
		report, err = s.handleHistory(ctx, userID, msg.Payload)
	default:
		return fmt.Errorf("unknown command type %q", msg.Type)
	}
	if err != nil {
		return fmt.Errorf("command %s failed: %w", msg.Type, err)
	}

	if err := s.publisher.PublishReport(ctx, msg.RequestID, msg.UserID, kind, report); err != nil {
		reqLogger.Error("failed to publish report",
			zap.Error(err),
			zap.String("kind", kind),
		)
	}

	reqLogger.Info("command processed", zap.String("type", msg.Type))
	return nil
}

// handleReading validates and stores a reading, then judges it against the
// hour's baseline.
func (s *ProcessorService) handleReading(ctx context.Context, msg CommandMessage, logger *zap.Logger) (*anomaly.Verdict, error) {
	var payload ReadingPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal reading payload: %w", err)
	}

	record, result := s.validator.ValidateReading(validator.Reading{
		UserID:      msg.UserID,
		Consumption: payload.Consumption,
		Hour:        payload.Hour,
		DayOfWeek:   payload.DayOfWeek,
		Temperature: payload.Temperature,
		Timestamp:   payload.Timestamp,
	}, msg.ReceivedAt)
	if !result.IsValid {
		return nil, fmt.Errorf("invalid reading: %s", result.Reason)
	}

	if err := s.repo.InsertConsumption(ctx, record); err != nil {
		return nil, err
	}

	verdict, err := s.detector.Analyze(ctx, record.UserID, record.HourlyConsumption, record.HourOfDay)
	if err != nil {
		return nil, err
	}

	if verdict.IsAnomaly {
		logger.Info("reading flagged as anomalous",
			zap.Float64("consumption", record.HourlyConsumption),
			zap.Int("hour", record.HourOfDay),
			zap.Float64("z_score", verdict.ZScore),
		)
	}

	return verdict, nil
}

func (s *ProcessorService) handleFeedback(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (*feedback.Result, error) {
	var payload FeedbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feedback payload: %w", err)
	}

	anomalyID, err := uuid.Parse(payload.AnomalyID)
	if err != nil {
		return nil, fmt.Errorf("invalid anomaly id %q: %w", payload.AnomalyID, err)
	}

	return s.adjuster.Apply(ctx, userID, anomalyID, payload.Kind, payload.Appliance)
}

func (s *ProcessorService) handleForecast(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (*forecast.Result, error) {
	var payload ForecastPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal forecast payload: %w", err)
		}
	}

	switch payload.Variant {
	case "day":
		return s.forecasts.NextDay(ctx, userID, payload.State)
	case "week":
		return s.forecasts.Week(ctx, userID, payload.State)
	case "month":
		return s.forecasts.Month(ctx, userID, payload.State)
	case "":
		return s.forecasts.Forecast(ctx, userID, payload.Days, payload.State)
	default:
		return nil, fmt.Errorf("unknown forecast variant %q", payload.Variant)
	}
}

func (s *ProcessorService) handleHistory(ctx context.Context, userID uuid.UUID, raw json.RawMessage) (interface{}, error) {
	var payload HistoryPayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history payload: %w", err)
		}
	}

	switch payload.Kind {
	case "", "anomalies":
		events, err := s.repo.RecentAnomalies(ctx, userID, anomalyHistoryLimit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"total_anomalies": len(events),
			"anomalies":       events,
		}, nil
	case "baselines":
		stats, err := s.repo.ListBaselines(ctx, userID)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"baselines": stats}, nil
	default:
		return nil, fmt.Errorf("unknown history kind %q", payload.Kind)
	}
}
