package appliance

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

// Report status values
const (
	StatusReady      = "ready"
	StatusCollecting = "collecting"
)

// Signature describes a known appliance class
type Signature struct {
	Name       string `json:"name"`
	PowerWatts int    `json:"power_watts"`
}

// Known appliance signatures
var (
	SignatureAC     = Signature{Name: "Air Conditioner", PowerWatts: 1500}
	SignatureGeyser = Signature{Name: "Water Heater", PowerWatts: 2000}
	SignatureFridge = Signature{Name: "Refrigerator", PowerWatts: 150}
	SignatureFan    = Signature{Name: "Ceiling Fan", PowerWatts: 75}
)

var (
	nightHours   = []int{22, 23, 0, 1, 2, 3, 4, 5}
	morningHours = []int{6, 7, 8, 9}
)

// Detected is one appliance the heuristics believe is active
type Detected struct {
	Signature
	Confidence string `json:"confidence"`
	Usage      string `json:"usage"`
}

// Analysis carries the aggregate numbers behind a report
type Analysis struct {
	Baseline float64 `json:"baseline"`
	PeakHour int     `json:"peak_hour"`
}

// Report is the result of an appliance scan
type Report struct {
	Status           string     `json:"status"`
	LikelyAppliances []Detected `json:"likely_appliances,omitempty"`
	Analysis         *Analysis  `json:"analysis,omitempty"`
}

// Store is the slice of the gateway the predictor needs
type Store interface {
	GetConsumptionSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]db.ConsumptionRecord, error)
}

// Predictor guesses active appliances from the shape of hourly consumption
type Predictor struct {
	store  Store
	cfg    config.ApplianceConfig
	logger *zap.Logger
}

// NewPredictor creates a new appliance predictor
func NewPredictor(store Store, cfg config.ApplianceConfig, logger *zap.Logger) *Predictor {
	return &Predictor{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// HourlyAverages computes the average consumption per hour-of-day bucket.
// Only hours with at least one reading appear in the map.
func HourlyAverages(records []db.ConsumptionRecord) map[int]float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, rec := range records {
		sums[rec.HourOfDay] += rec.HourlyConsumption
		counts[rec.HourOfDay]++
	}

	averages := make(map[int]float64, len(sums))
	for h, sum := range sums {
		averages[h] = sum / float64(counts[h])
	}
	return averages
}

// Classify applies the detection rules to hourly averages. Each rule is
// evaluated independently. Base load is the minimum hourly average, a proxy
// for always-on devices.
func Classify(hourlyAvg map[int]float64, cfg config.ApplianceConfig) *Report {
	if len(hourlyAvg) == 0 {
		return &Report{Status: StatusCollecting}
	}

	baseline := math.Inf(1)
	for _, avg := range hourlyAvg {
		if avg < baseline {
			baseline = avg
		}
	}

	var detected []Detected

	if baseline > cfg.BaseLoadThreshold {
		detected = append(detected, Detected{Signature: SignatureFridge, Confidence: "high", Usage: "24/7"})
	}

	nightSum := 0.0
	for _, h := range nightHours {
		nightSum += hourlyAvg[h]
	}
	nightAvg := nightSum / float64(len(nightHours))
	if nightAvg > baseline+cfg.NightLoadOffset {
		detected = append(detected, Detected{Signature: SignatureAC, Confidence: "high", Usage: "Nights"})
	}

	morningPeak := 0.0
	for _, h := range morningHours {
		if hourlyAvg[h] > morningPeak {
			morningPeak = hourlyAvg[h]
		}
	}
	if morningPeak > baseline+cfg.MorningPeakOffset {
		detected = append(detected, Detected{Signature: SignatureGeyser, Confidence: "medium", Usage: "Mornings"})
	}

	// Peak hour: highest average, first hour in ascending order wins ties
	peakHour := -1
	peakValue := math.Inf(-1)
	for h := 0; h < 24; h++ {
		avg, ok := hourlyAvg[h]
		if !ok {
			continue
		}
		if avg > peakValue {
			peakValue = avg
			peakHour = h
		}
	}

	return &Report{
		Status:           StatusReady,
		LikelyAppliances: detected,
		Analysis: &Analysis{
			Baseline: math.Round(baseline),
			PeakHour: peakHour,
		},
	}
}

// Predict scans the user's recent history and reports likely active appliances
func (p *Predictor) Predict(ctx context.Context, userID uuid.UUID) (*Report, error) {
	since := time.Now().UTC().AddDate(0, 0, -p.cfg.WindowDays)
	history, err := p.store.GetConsumptionSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch consumption history: %w", err)
	}

	report := Classify(HourlyAverages(history), p.cfg)

	if report.Status == StatusReady {
		p.logger.Debug("appliance scan complete",
			zap.String("user_id", userID.String()),
			zap.Int("detected", len(report.LikelyAppliances)),
			zap.Float64("baseline", report.Analysis.Baseline),
		)
	}

	return report, nil
}
