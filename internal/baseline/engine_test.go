package baseline_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/baseline"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"go.uber.org/zap"
)

var testBaselineConfig = config.BaselineConfig{
	WindowDays:          60,
	MinHistoryRecords:   24,
	MinSamplesPerHour:   5,
	DefaultThresholdMul: 2.0,
}

type fakeStore struct {
	history  []db.ConsumptionRecord
	upserted []db.BaselineStatistic
}

func (f *fakeStore) GetConsumptionSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]db.ConsumptionRecord, error) {
	return f.history, nil
}

func (f *fakeStore) UpsertBaselines(ctx context.Context, stats []db.BaselineStatistic) error {
	f.upserted = stats
	return nil
}

func readings(hour, count int, value float64) []db.ConsumptionRecord {
	recs := make([]db.ConsumptionRecord, 0, count)
	for i := 0; i < count; i++ {
		recs = append(recs, db.ConsumptionRecord{
			HourOfDay:         hour,
			HourlyConsumption: value,
			Timestamp:         time.Now().UTC(),
		})
	}
	return recs
}

func TestSummarize_PopulationStdDev(t *testing.T) {
	s := baseline.Summarize([]float64{100, 120, 110, 130, 90})

	if s.Mean != 110 {
		t.Errorf("Expected mean 110, got %f", s.Mean)
	}

	// Population std dev: sqrt(((−10)²+10²+0²+20²+(−20)²)/5) = sqrt(200)
	expected := math.Sqrt(200)
	if math.Abs(s.StdDev-expected) > 1e-9 {
		t.Errorf("Expected population std dev %f, got %f", expected, s.StdDev)
	}

	if s.Min != 90 || s.Max != 130 {
		t.Errorf("Expected min 90 max 130, got min %f max %f", s.Min, s.Max)
	}

	if s.Count != 5 {
		t.Errorf("Expected count 5, got %d", s.Count)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := baseline.Summarize(nil)

	if s.Count != 0 || s.Mean != 0 || s.StdDev != 0 {
		t.Errorf("Expected zero summary for empty input, got %+v", s)
	}
}

func TestRecalculate_InsufficientData(t *testing.T) {
	store := &fakeStore{history: readings(10, 10, 100)}
	engine := baseline.NewEngine(store, testBaselineConfig, zap.NewNop())

	result, err := engine.Recalculate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Status != baseline.StatusInsufficientData {
		t.Errorf("Expected status %s, got %s", baseline.StatusInsufficientData, result.Status)
	}

	if result.DataPoints != 10 {
		t.Errorf("Expected 10 data points, got %d", result.DataPoints)
	}

	if store.upserted != nil {
		t.Error("Expected no upsert with insufficient data")
	}
}

func TestRecalculate_SkipsSparseHours(t *testing.T) {
	// Hour 10: 6 samples (written), hour 11: 5 samples (skipped, at the
	// threshold), hour 12: 13 samples (written). 24 records total.
	var history []db.ConsumptionRecord
	history = append(history, readings(10, 6, 100)...)
	history = append(history, readings(11, 5, 200)...)
	history = append(history, readings(12, 13, 50)...)

	store := &fakeStore{history: history}
	engine := baseline.NewEngine(store, testBaselineConfig, zap.NewNop())

	result, err := engine.Recalculate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Status != baseline.StatusReady {
		t.Errorf("Expected status %s, got %s", baseline.StatusReady, result.Status)
	}

	if result.HoursUpdated != 2 {
		t.Fatalf("Expected 2 hours updated, got %d", result.HoursUpdated)
	}

	if store.upserted[0].Hour != 10 || store.upserted[1].Hour != 12 {
		t.Errorf("Expected hours 10 and 12, got %d and %d", store.upserted[0].Hour, store.upserted[1].Hour)
	}
}

func TestRecalculate_ConstantLoadStats(t *testing.T) {
	store := &fakeStore{history: readings(8, 24, 100)}
	engine := baseline.NewEngine(store, testBaselineConfig, zap.NewNop())

	_, err := engine.Recalculate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(store.upserted) != 1 {
		t.Fatalf("Expected 1 baseline row, got %d", len(store.upserted))
	}

	stat := store.upserted[0]
	if stat.Mean != 100 || stat.StdDev != 0 || stat.MinVal != 100 || stat.MaxVal != 100 {
		t.Errorf("Unexpected stats for constant load: %+v", stat)
	}

	if stat.DataPoints != 24 {
		t.Errorf("Expected 24 data points, got %d", stat.DataPoints)
	}
}

func TestRecalculate_ResetsThresholdMultiplier(t *testing.T) {
	store := &fakeStore{history: readings(8, 30, 100)}
	engine := baseline.NewEngine(store, testBaselineConfig, zap.NewNop())

	_, err := engine.Recalculate(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Recalculation always resets the multiplier, discarding any prior
	// feedback widening.
	for _, stat := range store.upserted {
		if stat.ThresholdMultiplier != 2.0 {
			t.Errorf("Expected threshold multiplier 2.0, got %f", stat.ThresholdMultiplier)
		}
	}
}
