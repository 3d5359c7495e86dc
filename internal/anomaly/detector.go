package anomaly

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"go.uber.org/zap"
)

// Verdict status values
const (
	StatusOK       = "ok"
	StatusLearning = "learning"
	StatusAnomaly  = "anomaly"
)

// Confidence levels for detected anomalies
const (
	ConfidenceMedium = "medium"
	ConfidenceHigh   = "high"
)

// Store is the slice of the gateway the detector needs
type Store interface {
	GetBaseline(ctx context.Context, userID uuid.UUID, hour int) (*db.BaselineStatistic, error)
	InsertAnomalyEvent(ctx context.Context, event *db.AnomalyEvent) (*db.AnomalyEvent, error)
}

// Range is the expected consumption band for an hour
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Verdict is the outcome of judging one reading against its hour's baseline
type Verdict struct {
	IsAnomaly     bool             `json:"is_anomaly"`
	Status        string           `json:"status"`
	ZScore        float64          `json:"z_score"`
	CurrentValue  float64          `json:"current_value"`
	ExpectedRange Range            `json:"expected_range"`
	Event         *db.AnomalyEvent `json:"anomaly_event,omitempty"`
}

// Detector judges readings against per-hour baseline statistics
type Detector struct {
	store  Store
	cfg    config.DetectionConfig
	logger *zap.Logger
}

// NewDetector creates a new anomaly detector
func NewDetector(store Store, cfg config.DetectionConfig, logger *zap.Logger) *Detector {
	return &Detector{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Evaluate computes the verdict for a reading given its hour's baseline.
// A zero std_dev is replaced with 1 so constant historical load cannot
// divide by zero.
func Evaluate(value float64, stat db.BaselineStatistic) Verdict {
	safeStdDev := stat.StdDev
	if safeStdDev == 0 {
		safeStdDev = 1
	}

	z := (value - stat.Mean) / safeStdDev
	verdict := Verdict{
		Status:       StatusOK,
		ZScore:       z,
		CurrentValue: value,
		ExpectedRange: Range{
			Min: math.Max(0, stat.Mean-stat.StdDev*stat.ThresholdMultiplier),
			Max: stat.Mean + stat.StdDev*stat.ThresholdMultiplier,
		},
	}

	if math.Abs(z) > stat.ThresholdMultiplier {
		verdict.IsAnomaly = true
		verdict.Status = StatusAnomaly
	}

	return verdict
}

// buildEvent assembles the audit record for an anomalous reading
func buildEvent(userID uuid.UUID, hour int, value float64, stat db.BaselineStatistic, z, highConfidenceZ float64) *db.AnomalyEvent {
	confidence := ConfidenceMedium
	if math.Abs(z) > highConfidenceZ {
		confidence = ConfidenceHigh
	}

	deviationPercent := (value - stat.Mean) / stat.Mean * 100

	direction := "higher"
	cause := "High power appliance usage"
	recommendation := "Check AC or Heater settings"
	if value <= stat.Mean {
		direction = "lower"
		cause = "Unusual drop"
		recommendation = "Check if appliance failed"
	}

	return &db.AnomalyEvent{
		UserID:           userID,
		HourOfDay:        hour,
		Consumption:      value,
		ExpectedMean:     stat.Mean,
		ExpectedStdDev:   stat.StdDev,
		ZScore:           z,
		Confidence:       confidence,
		Deviation:        fmt.Sprintf("%d%% %s", int(math.Round(deviationPercent)), direction),
		DeviationPercent: deviationPercent,
		PossibleCause:    cause,
		Recommendation:   recommendation,
		Status:           db.AnomalyStatusDetected,
	}
}

// Analyze judges a live reading for (user, hour). With no established
// baseline it returns a learning verdict and records nothing. On anomaly it
// persists an event; a failed event write is logged and swallowed so the
// verdict still reaches the caller.
func (d *Detector) Analyze(ctx context.Context, userID uuid.UUID, value float64, hour int) (*Verdict, error) {
	stat, err := d.store.GetBaseline(ctx, userID, hour)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch baseline: %w", err)
	}

	if stat == nil {
		return &Verdict{
			Status:       StatusLearning,
			CurrentValue: value,
		}, nil
	}

	verdict := Evaluate(value, *stat)
	if !verdict.IsAnomaly {
		return &verdict, nil
	}

	event := buildEvent(userID, hour, value, *stat, verdict.ZScore, d.cfg.HighConfidenceZScore)
	stored, err := d.store.InsertAnomalyEvent(ctx, event)
	if err != nil {
		d.logger.Warn("failed to persist anomaly event",
			zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.Int("hour", hour),
		)
		return &verdict, nil
	}

	verdict.Event = stored
	d.logger.Debug("anomaly detected",
		zap.String("user_id", userID.String()),
		zap.Int("hour", hour),
		zap.Float64("z_score", verdict.ZScore),
		zap.String("confidence", stored.Confidence),
	)

	return &verdict, nil
}
