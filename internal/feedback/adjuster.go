package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"go.uber.org/zap"
)

// Feedback kinds. "normal" disputes a flagged anomaly as a false positive;
// "problem" confirms it.
const (
	KindNormal  = "normal"
	KindProblem = "problem"
)

// ErrUnknownKind is returned for a feedback kind outside the taxonomy
var ErrUnknownKind = errors.New("unknown feedback kind")

// ErrEventNotFound is returned when the referenced anomaly event does not exist
var ErrEventNotFound = errors.New("anomaly event not found")

// Store is the slice of the gateway the adjuster needs
type Store interface {
	GetAnomalyEvent(ctx context.Context, id uuid.UUID) (*db.AnomalyEvent, error)
	UpdateAnomalyStatus(ctx context.Context, id uuid.UUID, status string, userFeedback []byte) error
	GetBaseline(ctx context.Context, userID uuid.UUID, hour int) (*db.BaselineStatistic, error)
	SetThresholdMultiplier(ctx context.Context, userID uuid.UUID, hour int, multiplier float64) error
}

// Result describes the applied adjustment
type Result struct {
	EventStatus         string   `json:"event_status"`
	Hour                int      `json:"hour"`
	ThresholdMultiplier *float64 `json:"threshold_multiplier,omitempty"`
}

// Adjuster is the only component that mutates threshold_multiplier outside
// of a full baseline recalculation. The widen is a plain read-modify-write:
// concurrent feedback on the same (user, hour) is last-writer-wins and can
// lose an increment. Thresholds only loosen here; a recalculation resets
// them to the default.
type Adjuster struct {
	store     Store
	increment float64
	logger    *zap.Logger
}

// NewAdjuster creates a new feedback adjuster
func NewAdjuster(store Store, cfg config.FeedbackConfig, logger *zap.Logger) *Adjuster {
	return &Adjuster{
		store:     store,
		increment: cfg.ThresholdIncrement,
		logger:    logger,
	}
}

// Apply records user feedback on an anomaly event. Kind "normal" marks the
// event a false positive and widens that hour's threshold; kind "problem"
// acknowledges the event and attaches the reported appliance.
func (a *Adjuster) Apply(ctx context.Context, userID, anomalyID uuid.UUID, kind, appliance string) (*Result, error) {
	switch kind {
	case KindNormal:
		return a.applyFalsePositive(ctx, userID, anomalyID)
	case KindProblem:
		return a.applyConfirmed(ctx, anomalyID, appliance)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (a *Adjuster) applyFalsePositive(ctx context.Context, userID, anomalyID uuid.UUID) (*Result, error) {
	event, err := a.store.GetAnomalyEvent(ctx, anomalyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch anomaly event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	if err := a.store.UpdateAnomalyStatus(ctx, anomalyID, db.AnomalyStatusFalsePositive, nil); err != nil {
		return nil, fmt.Errorf("failed to update anomaly status: %w", err)
	}

	result := &Result{EventStatus: db.AnomalyStatusFalsePositive, Hour: event.HourOfDay}

	stat, err := a.store.GetBaseline(ctx, userID, event.HourOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch baseline: %w", err)
	}
	if stat == nil {
		// Baseline rows can disappear between detection and feedback
		// (recalculation may skip a now-sparse hour); nothing to widen.
		return result, nil
	}

	widened := stat.ThresholdMultiplier + a.increment
	if err := a.store.SetThresholdMultiplier(ctx, userID, event.HourOfDay, widened); err != nil {
		return nil, fmt.Errorf("failed to widen threshold: %w", err)
	}

	a.logger.Info("threshold widened on false positive",
		zap.String("user_id", userID.String()),
		zap.Int("hour", event.HourOfDay),
		zap.Float64("threshold_multiplier", widened),
	)

	result.ThresholdMultiplier = &widened
	return result, nil
}

func (a *Adjuster) applyConfirmed(ctx context.Context, anomalyID uuid.UUID, appliance string) (*Result, error) {
	event, err := a.store.GetAnomalyEvent(ctx, anomalyID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch anomaly event: %w", err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	userFeedback, err := json.Marshal(map[string]string{"appliance": appliance})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user feedback: %w", err)
	}

	if err := a.store.UpdateAnomalyStatus(ctx, anomalyID, db.AnomalyStatusAcknowledged, userFeedback); err != nil {
		return nil, fmt.Errorf("failed to update anomaly status: %w", err)
	}

	return &Result{EventStatus: db.AnomalyStatusAcknowledged, Hour: event.HourOfDay}, nil
}
