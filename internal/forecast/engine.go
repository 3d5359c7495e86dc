package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/config"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"github.com/ritesh-1918/SHEM-GDG/tools/timebucket"
	"go.uber.org/zap"
)

// Result status values
const (
	StatusReady            = "ready"
	StatusInsufficientData = "insufficient_data"
)

// Trend labels
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// Readings are stored in Wh; costs are billed per kWh.
const whPerKWh = 1000

// trendLabelCutoff separates a stable trend from a moving one
const trendLabelCutoff = 0.05

// Store is the slice of the gateway the engine needs
type Store interface {
	GetConsumptionSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]db.ConsumptionRecord, error)
}

// DayForecast is one projected day
type DayForecast struct {
	Date       string  `json:"date"`
	DayName    string  `json:"day_name"`
	Predicted  float64 `json:"predicted"`
	Confidence string  `json:"confidence"`
	Cost       float64 `json:"cost"`
}

// Metrics summarizes the history the forecast was built from
type Metrics struct {
	RecentAverage float64 `json:"recent_average"`
	Trend         string  `json:"trend"`
}

// Result is a full forecast response. PredictedTotal and PredictedCost are
// only filled by the month variant.
type Result struct {
	Status         string        `json:"status"`
	DataPoints     int           `json:"data_points,omitempty"`
	DaysNeeded     int           `json:"days_needed,omitempty"`
	Forecasts      []DayForecast `json:"forecasts,omitempty"`
	Metrics        *Metrics      `json:"metrics,omitempty"`
	PredictedTotal float64       `json:"predicted_total,omitempty"`
	PredictedCost  float64       `json:"predicted_cost,omitempty"`
}

// Engine projects future daily consumption from historical readings
type Engine struct {
	store  Store
	cfg    config.ForecastConfig
	tariff config.TariffConfig
	logger *zap.Logger
}

// NewEngine creates a new forecast engine
func NewEngine(store Store, cfg config.ForecastConfig, tariff config.TariffConfig, logger *zap.Logger) *Engine {
	return &Engine{
		store:  store,
		cfg:    cfg,
		tariff: tariff,
		logger: logger,
	}
}

// DailyTotals sums hourly readings into daily totals keyed by UTC calendar
// date, returned in chronological order (records arrive timestamp-ascending).
func DailyTotals(records []db.ConsumptionRecord) []float64 {
	totals := make(map[string]float64)
	var order []string
	for _, rec := range records {
		key := timebucket.DayKey(rec.Timestamp)
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += rec.HourlyConsumption
	}

	values := make([]float64, 0, len(order))
	for _, key := range order {
		values = append(values, totals[key])
	}
	return values
}

// Trend compares the last three daily totals against the prior three.
// Returns 0 when fewer than six days of totals exist.
func Trend(dailyValues []float64) float64 {
	if len(dailyValues) < 6 {
		return 0
	}

	recent3 := 0.0
	prev3 := 0.0
	n := len(dailyValues)
	for _, v := range dailyValues[n-3:] {
		recent3 += v
	}
	for _, v := range dailyValues[n-6 : n-3] {
		prev3 += v
	}

	return (recent3 - prev3) / prev3
}

// Forecast projects daily consumption for the next daysAhead days. The trend
// influence decays as 1/(dayIndex+1) over the horizon. The state selects the
// tariff rate, falling back to the default state.
func (e *Engine) Forecast(ctx context.Context, userID uuid.UUID, daysAhead int, state string) (*Result, error) {
	if daysAhead <= 0 {
		daysAhead = e.cfg.DefaultHorizon
	}

	since := time.Now().UTC().AddDate(0, 0, -e.cfg.WindowDays)
	history, err := e.store.GetConsumptionSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consumption history: %w", err)
	}

	if len(history) < e.cfg.MinHistoryRecords {
		return &Result{
			Status:     StatusInsufficientData,
			DataPoints: len(history),
			DaysNeeded: 7,
		}, nil
	}

	dailyValues := DailyTotals(history)
	sum := 0.0
	for _, v := range dailyValues {
		sum += v
	}
	recentAvg := sum / float64(len(dailyValues))
	trend := Trend(dailyValues)
	rate := e.tariff.RateFor(state)

	forecasts := make([]DayForecast, 0, daysAhead)
	today := time.Now().UTC()
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i+1)

		// Trend impact fades the further out the projection goes
		trendImpact := trend / float64(i+1)
		predicted := recentAvg * (1 + trendImpact)

		forecasts = append(forecasts, DayForecast{
			Date:       timebucket.DayKey(date),
			DayName:    date.Weekday().String(),
			Predicted:  math.Round(predicted),
			Confidence: "medium",
			Cost:       math.Round(predicted * rate / whPerKWh),
		})
	}

	e.logger.Debug("forecast generated",
		zap.String("user_id", userID.String()),
		zap.Int("days_ahead", daysAhead),
		zap.Float64("recent_average", recentAvg),
		zap.Float64("trend", trend),
	)

	return &Result{
		Status:    StatusReady,
		Forecasts: forecasts,
		Metrics: &Metrics{
			RecentAverage: math.Round(recentAvg),
			Trend:         trendLabel(trend),
		},
	}, nil
}

// NextDay projects a single day ahead
func (e *Engine) NextDay(ctx context.Context, userID uuid.UUID, state string) (*Result, error) {
	return e.Forecast(ctx, userID, 1, state)
}

// Week projects the next seven days
func (e *Engine) Week(ctx context.Context, userID uuid.UUID, state string) (*Result, error) {
	return e.Forecast(ctx, userID, 7, state)
}

// Month projects the next thirty days and additionally totals the predicted
// consumption and cost.
func (e *Engine) Month(ctx context.Context, userID uuid.UUID, state string) (*Result, error) {
	result, err := e.Forecast(ctx, userID, 30, state)
	if err != nil || result.Status != StatusReady {
		return result, err
	}

	total := 0.0
	for _, f := range result.Forecasts {
		total += f.Predicted
	}
	result.PredictedTotal = total
	result.PredictedCost = math.Round(total / whPerKWh * e.tariff.RateFor(state))

	return result, nil
}

func trendLabel(trend float64) string {
	switch {
	case trend > trendLabelCutoff:
		return TrendIncreasing
	case trend < -trendLabelCutoff:
		return TrendDecreasing
	default:
		return TrendStable
	}
}
