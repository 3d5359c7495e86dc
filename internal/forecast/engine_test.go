package forecast_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"github.com/ritesh-1918/SHEM-GDG/internal/forecast"
	"go.uber.org/zap"
)

var (
	testForecastConfig = config.ForecastConfig{
		WindowDays:        30,
		MinHistoryRecords: 24,
		DefaultHorizon:    7,
	}
	testTariff = config.TariffConfig{
		RatesPerKWh:  map[string]float64{"Delhi": 6.5, "Karnataka": 6.9},
		DefaultState: "Delhi",
	}
)

type fakeStore struct {
	history []db.ConsumptionRecord
}

func (f *fakeStore) GetConsumptionSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]db.ConsumptionRecord, error) {
	return f.history, nil
}

// historyOf builds per-day readings; dailyValues[d] is split into readingsPerDay
// equal hourly readings on day d.
func historyOf(dailyValues []float64, readingsPerDay int) []db.ConsumptionRecord {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var records []db.ConsumptionRecord
	for d, total := range dailyValues {
		for i := 0; i < readingsPerDay; i++ {
			records = append(records, db.ConsumptionRecord{
				Timestamp:         start.AddDate(0, 0, d).Add(time.Duration(i) * time.Hour),
				HourlyConsumption: total / float64(readingsPerDay),
				HourOfDay:         i,
			})
		}
	}
	return records
}

func TestDailyTotals_BucketsByUTCDate(t *testing.T) {
	day1 := time.Date(2025, 6, 1, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 2, 0, 30, 0, 0, time.UTC)

	totals := forecast.DailyTotals([]db.ConsumptionRecord{
		{Timestamp: day1.Add(-2 * time.Hour), HourlyConsumption: 10},
		{Timestamp: day1.Add(-1 * time.Hour), HourlyConsumption: 20},
		{Timestamp: day1, HourlyConsumption: 30},
		{Timestamp: day2, HourlyConsumption: 5},
		{Timestamp: day2.Add(time.Hour), HourlyConsumption: 5},
	})

	if len(totals) != 2 {
		t.Fatalf("Expected 2 daily totals, got %d", len(totals))
	}

	if totals[0] != 60 || totals[1] != 10 {
		t.Errorf("Expected totals [60, 10], got %v", totals)
	}
}

func TestTrend_RequiresSixDays(t *testing.T) {
	if trend := forecast.Trend([]float64{100, 100, 100, 100, 100}); trend != 0 {
		t.Errorf("Expected zero trend with fewer than six days, got %f", trend)
	}
}

func TestTrend_LastThreeVsPriorThree(t *testing.T) {
	trend := forecast.Trend([]float64{100, 100, 100, 110, 110, 110})

	// (330 - 300) / 300
	if trend != 0.1 {
		t.Errorf("Expected trend 0.1, got %f", trend)
	}
}

func TestForecast_InsufficientData(t *testing.T) {
	store := &fakeStore{history: historyOf([]float64{100, 100}, 5)}
	engine := forecast.NewEngine(store, testForecastConfig, testTariff, zap.NewNop())

	result, err := engine.Forecast(context.Background(), uuid.New(), 7, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if result.Status != forecast.StatusInsufficientData {
		t.Errorf("Expected status %s, got %s", forecast.StatusInsufficientData, result.Status)
	}

	if result.DataPoints != 10 {
		t.Errorf("Expected 10 data points, got %d", result.DataPoints)
	}

	if len(result.Forecasts) != 0 {
		t.Error("Expected no forecast rows with insufficient data")
	}
}

func TestForecast_FlatHistoryPredictsAverage(t *testing.T) {
	// 8 flat days, 3 readings each: 24 records, daily total 2400, zero trend
	store := &fakeStore{history: historyOf([]float64{2400, 2400, 2400, 2400, 2400, 2400, 2400, 2400}, 3)}
	engine := forecast.NewEngine(store, testForecastConfig, testTariff, zap.NewNop())

	for _, horizon := range []int{1, 7, 30} {
		result, err := engine.Forecast(context.Background(), uuid.New(), horizon, "")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		if result.Status != forecast.StatusReady {
			t.Fatalf("Expected status ready, got %s", result.Status)
		}

		if len(result.Forecasts) != horizon {
			t.Fatalf("Expected %d forecast rows, got %d", horizon, len(result.Forecasts))
		}

		for _, f := range result.Forecasts {
			if f.Predicted != 2400 {
				t.Errorf("Expected flat prediction 2400, got %f", f.Predicted)
			}
			if f.Confidence != "medium" {
				t.Errorf("Expected medium confidence, got %s", f.Confidence)
			}
			// 2400 Wh at 6.5/kWh
			if f.Cost != 16 {
				t.Errorf("Expected cost 16, got %f", f.Cost)
			}
		}

		if result.Metrics.RecentAverage != 2400 {
			t.Errorf("Expected recent average 2400, got %f", result.Metrics.RecentAverage)
		}
		if result.Metrics.Trend != forecast.TrendStable {
			t.Errorf("Expected stable trend, got %s", result.Metrics.Trend)
		}
	}
}

func TestForecast_TrendDecay(t *testing.T) {
	// Daily totals [100,100,100,110,110,110]: average 105, trend 0.1
	store := &fakeStore{history: historyOf([]float64{100, 100, 100, 110, 110, 110}, 4)}
	engine := forecast.NewEngine(store, testForecastConfig, testTariff, zap.NewNop())

	result, err := engine.Forecast(context.Background(), uuid.New(), 3, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// Day 0: 105*(1+0.1) = 115.5 -> 116; day 1: 105*(1+0.05) = 110.25 -> 110;
	// day 2: 105*(1+0.1/3) = 108.5 -> 109 (round half away from zero)
	expected := []float64{116, 110, 109}
	for i, f := range result.Forecasts {
		if f.Predicted != expected[i] {
			t.Errorf("Day %d: expected predicted %f, got %f", i, expected[i], f.Predicted)
		}
	}

	if result.Metrics.Trend != forecast.TrendIncreasing {
		t.Errorf("Expected increasing trend, got %s", result.Metrics.Trend)
	}
}

func TestMonth_TotalsAndCost(t *testing.T) {
	store := &fakeStore{history: historyOf([]float64{2400, 2400, 2400, 2400, 2400, 2400, 2400, 2400}, 3)}
	engine := forecast.NewEngine(store, testForecastConfig, testTariff, zap.NewNop())

	result, err := engine.Month(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(result.Forecasts) != 30 {
		t.Fatalf("Expected 30 forecast rows, got %d", len(result.Forecasts))
	}

	if result.PredictedTotal != 72000 {
		t.Errorf("Expected predicted total 72000, got %f", result.PredictedTotal)
	}

	// 72 kWh at 6.5/kWh
	if result.PredictedCost != 468 {
		t.Errorf("Expected predicted cost 468, got %f", result.PredictedCost)
	}
}

func TestForecast_StateSelectsTariffRate(t *testing.T) {
	store := &fakeStore{history: historyOf([]float64{2400, 2400, 2400, 2400, 2400, 2400, 2400, 2400}, 3)}
	engine := forecast.NewEngine(store, testForecastConfig, testTariff, zap.NewNop())

	result, err := engine.NextDay(context.Background(), uuid.New(), "Karnataka")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// 2400 Wh at 6.9/kWh = 16.56 -> 17
	if result.Forecasts[0].Cost != 17 {
		t.Errorf("Expected cost 17 at Karnataka rate, got %f", result.Forecasts[0].Cost)
	}
}
