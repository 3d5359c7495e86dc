package anomaly_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/anomaly"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"go.uber.org/zap"
)

var testDetectionConfig = config.DetectionConfig{HighConfidenceZScore: 3.0}

type fakeStore struct {
	baseline  *db.BaselineStatistic
	insertErr error
	inserted  *db.AnomalyEvent
}

func (f *fakeStore) GetBaseline(ctx context.Context, userID uuid.UUID, hour int) (*db.BaselineStatistic, error) {
	return f.baseline, nil
}

func (f *fakeStore) InsertAnomalyEvent(ctx context.Context, event *db.AnomalyEvent) (*db.AnomalyEvent, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	stored := *event
	stored.ID = uuid.New()
	f.inserted = &stored
	return &stored, nil
}

func testBaseline(mean, stdDev, multiplier float64) db.BaselineStatistic {
	return db.BaselineStatistic{
		Mean:                mean,
		StdDev:              stdDev,
		ThresholdMultiplier: multiplier,
	}
}

func TestEvaluate_AnomalyAboveThreshold(t *testing.T) {
	verdict := anomaly.Evaluate(1250, testBaseline(1000, 100, 2.0))

	if !verdict.IsAnomaly {
		t.Error("Expected anomaly for z-score 2.5")
	}

	if verdict.ZScore != 2.5 {
		t.Errorf("Expected z-score 2.5, got %f", verdict.ZScore)
	}

	if verdict.ExpectedRange.Min != 800 || verdict.ExpectedRange.Max != 1200 {
		t.Errorf("Expected range [800, 1200], got [%f, %f]",
			verdict.ExpectedRange.Min, verdict.ExpectedRange.Max)
	}
}

func TestEvaluate_NormalValue(t *testing.T) {
	verdict := anomaly.Evaluate(1150, testBaseline(1000, 100, 2.0))

	if verdict.IsAnomaly {
		t.Errorf("Expected no anomaly for z-score %f", verdict.ZScore)
	}

	if verdict.Status != anomaly.StatusOK {
		t.Errorf("Expected status %s, got %s", anomaly.StatusOK, verdict.Status)
	}
}

func TestEvaluate_DropBelowThreshold(t *testing.T) {
	verdict := anomaly.Evaluate(700, testBaseline(1000, 100, 2.0))

	if !verdict.IsAnomaly {
		t.Error("Expected anomaly for z-score -3")
	}

	if verdict.ZScore != -3 {
		t.Errorf("Expected z-score -3, got %f", verdict.ZScore)
	}
}

func TestEvaluate_ZeroStdDev(t *testing.T) {
	// Constant historical load: effective std dev of 1 keeps the z-score finite
	verdict := anomaly.Evaluate(1005, testBaseline(1000, 0, 2.0))

	if math.IsNaN(verdict.ZScore) || math.IsInf(verdict.ZScore, 0) {
		t.Fatalf("Expected finite z-score, got %f", verdict.ZScore)
	}

	if verdict.ZScore != 5 {
		t.Errorf("Expected z-score 5 with effective std dev 1, got %f", verdict.ZScore)
	}
}

func TestEvaluate_RangeClampedAtZero(t *testing.T) {
	verdict := anomaly.Evaluate(50, testBaseline(50, 100, 2.0))

	if verdict.ExpectedRange.Min != 0 {
		t.Errorf("Expected range min clamped to 0, got %f", verdict.ExpectedRange.Min)
	}
}

func TestAnalyze_LearningWithoutBaseline(t *testing.T) {
	store := &fakeStore{}
	detector := anomaly.NewDetector(store, testDetectionConfig, zap.NewNop())

	verdict, err := detector.Analyze(context.Background(), uuid.New(), 5000, 14)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if verdict.IsAnomaly {
		t.Error("Expected non-anomalous verdict without a baseline")
	}

	if verdict.Status != anomaly.StatusLearning {
		t.Errorf("Expected status %s, got %s", anomaly.StatusLearning, verdict.Status)
	}

	if store.inserted != nil {
		t.Error("Expected no anomaly event while learning")
	}
}

func TestAnalyze_MediumConfidenceEvent(t *testing.T) {
	stat := testBaseline(1000, 100, 2.0)
	store := &fakeStore{baseline: &stat}
	detector := anomaly.NewDetector(store, testDetectionConfig, zap.NewNop())

	verdict, err := detector.Analyze(context.Background(), uuid.New(), 1250, 14)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if verdict.Event == nil {
		t.Fatal("Expected persisted anomaly event")
	}

	if verdict.Event.Confidence != anomaly.ConfidenceMedium {
		t.Errorf("Expected confidence medium for |z|<=3, got %s", verdict.Event.Confidence)
	}

	if verdict.Event.DeviationPercent != 25 {
		t.Errorf("Expected deviation 25%%, got %f", verdict.Event.DeviationPercent)
	}

	if verdict.Event.Deviation != "25% higher" {
		t.Errorf("Expected deviation display '25%% higher', got %q", verdict.Event.Deviation)
	}

	if verdict.Event.Status != db.AnomalyStatusDetected {
		t.Errorf("Expected status detected, got %s", verdict.Event.Status)
	}

	if verdict.Event.PossibleCause != "High power appliance usage" {
		t.Errorf("Unexpected possible cause %q", verdict.Event.PossibleCause)
	}
}

func TestAnalyze_HighConfidenceEvent(t *testing.T) {
	stat := testBaseline(1000, 100, 2.0)
	store := &fakeStore{baseline: &stat}
	detector := anomaly.NewDetector(store, testDetectionConfig, zap.NewNop())

	verdict, err := detector.Analyze(context.Background(), uuid.New(), 1350, 14)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if verdict.ZScore != 3.5 {
		t.Errorf("Expected z-score 3.5, got %f", verdict.ZScore)
	}

	if verdict.Event == nil || verdict.Event.Confidence != anomaly.ConfidenceHigh {
		t.Errorf("Expected high confidence event, got %+v", verdict.Event)
	}
}

func TestAnalyze_DropEvent(t *testing.T) {
	stat := testBaseline(1000, 100, 2.0)
	store := &fakeStore{baseline: &stat}
	detector := anomaly.NewDetector(store, testDetectionConfig, zap.NewNop())

	verdict, err := detector.Analyze(context.Background(), uuid.New(), 600, 3)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if verdict.Event == nil {
		t.Fatal("Expected persisted anomaly event")
	}

	if verdict.Event.PossibleCause != "Unusual drop" {
		t.Errorf("Expected cause 'Unusual drop', got %q", verdict.Event.PossibleCause)
	}

	if verdict.Event.Recommendation != "Check if appliance failed" {
		t.Errorf("Unexpected recommendation %q", verdict.Event.Recommendation)
	}
}

func TestAnalyze_PersistFailureSwallowed(t *testing.T) {
	stat := testBaseline(1000, 100, 2.0)
	store := &fakeStore{baseline: &stat, insertErr: errors.New("connection reset")}
	detector := anomaly.NewDetector(store, testDetectionConfig, zap.NewNop())

	verdict, err := detector.Analyze(context.Background(), uuid.New(), 1250, 14)
	if err != nil {
		t.Fatalf("Expected verdict despite persist failure, got error: %v", err)
	}

	if !verdict.IsAnomaly {
		t.Error("Expected anomalous verdict")
	}

	if verdict.Event != nil {
		t.Error("Expected nil event when persistence fails")
	}
}
