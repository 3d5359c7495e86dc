package baseline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"go.uber.org/zap"
)

// Result status values. Insufficient data is a typed outcome, not an error,
// so callers can tell "not ready yet" apart from a store failure.
const (
	StatusReady            = "ready"
	StatusInsufficientData = "insufficient_data"
)

// Store is the slice of the gateway the engine needs
type Store interface {
	GetConsumptionSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]db.ConsumptionRecord, error)
	UpsertBaselines(ctx context.Context, stats []db.BaselineStatistic) error
}

// Result describes the outcome of a recalculation
type Result struct {
	Status       string `json:"status"`
	DataPoints   int    `json:"data_points"`
	HoursUpdated int    `json:"hours_updated"`
}

// Summary holds the statistics of one hour bucket
type Summary struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
	Count  int
}

// Engine recomputes per-hour baseline statistics from consumption history
type Engine struct {
	store  Store
	cfg    config.BaselineConfig
	logger *zap.Logger
}

// NewEngine creates a new baseline engine
func NewEngine(store Store, cfg config.BaselineConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Summarize computes mean, population standard deviation (divide by n, not
// n-1), min and max for one hour bucket.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if s.Count == 0 {
		return s
	}

	sum := 0.0
	s.Min = values[0]
	s.Max = values[0]
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Mean = sum / float64(s.Count)

	sumSq := 0.0
	for _, v := range values {
		diff := v - s.Mean
		sumSq += diff * diff
	}
	s.StdDev = math.Sqrt(sumSq / float64(s.Count))

	return s
}

// Recalculate rebuilds a user's per-hour baselines from the trailing history
// window and bulk-upserts them. Hours with too few samples are skipped, so a
// stale row for such an hour is left untouched. Every written row resets
// threshold_multiplier to the configured default, discarding any feedback
// widening for that hour.
func (e *Engine) Recalculate(ctx context.Context, userID uuid.UUID) (*Result, error) {
	since := time.Now().UTC().AddDate(0, 0, -e.cfg.WindowDays)
	history, err := e.store.GetConsumptionSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consumption history: %w", err)
	}

	if len(history) < e.cfg.MinHistoryRecords {
		e.logger.Info("not enough history to calculate baselines",
			zap.String("user_id", userID.String()),
			zap.Int("data_points", len(history)),
		)
		return &Result{Status: StatusInsufficientData, DataPoints: len(history)}, nil
	}

	buckets := make(map[int][]float64, 24)
	for _, rec := range history {
		if rec.HourOfDay < 0 || rec.HourOfDay > 23 {
			continue
		}
		buckets[rec.HourOfDay] = append(buckets[rec.HourOfDay], rec.HourlyConsumption)
	}

	var updates []db.BaselineStatistic
	for hour := 0; hour < 24; hour++ {
		values := buckets[hour]
		if len(values) <= e.cfg.MinSamplesPerHour {
			continue
		}
		s := Summarize(values)
		updates = append(updates, db.BaselineStatistic{
			UserID:              userID,
			Hour:                hour,
			Mean:                s.Mean,
			StdDev:              s.StdDev,
			MinVal:              s.Min,
			MaxVal:              s.Max,
			DataPoints:          s.Count,
			ThresholdMultiplier: e.cfg.DefaultThresholdMul,
		})
	}

	if err := e.store.UpsertBaselines(ctx, updates); err != nil {
		return nil, fmt.Errorf("failed to upsert baselines: %w", err)
	}

	e.logger.Info("baseline statistics updated",
		zap.String("user_id", userID.String()),
		zap.Int("hours_updated", len(updates)),
		zap.Int("data_points", len(history)),
	)

	return &Result{
		Status:       StatusReady,
		DataPoints:   len(history),
		HoursUpdated: len(updates),
	}, nil
}
