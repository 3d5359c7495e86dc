package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	ServicePort int
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Baseline    BaselineConfig
	Detection   DetectionConfig
	Feedback    FeedbackConfig
	Forecast    ForecastConfig
	Appliance   ApplianceConfig
	Tariff      TariffConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL               string
	CommandExchange   string
	CommandQueue      string
	CommandRoutingKey string
	ReportExchange    string
	ReportRoutingKey  string
	DLQQueue          string
	PrefetchCount     int
}

// BaselineConfig holds baseline recalculation settings
type BaselineConfig struct {
	WindowDays          int
	MinHistoryRecords   int
	MinSamplesPerHour   int
	DefaultThresholdMul float64
}

// DetectionConfig holds anomaly detection settings
type DetectionConfig struct {
	HighConfidenceZScore float64
}

// FeedbackConfig holds feedback adjustment settings
type FeedbackConfig struct {
	ThresholdIncrement float64
}

// ForecastConfig holds consumption forecast settings
type ForecastConfig struct {
	WindowDays        int
	MinHistoryRecords int
	DefaultHorizon    int
}

// ApplianceConfig holds appliance heuristic thresholds
type ApplianceConfig struct {
	WindowDays        int
	BaseLoadThreshold float64
	NightLoadOffset   float64
	MorningPeakOffset float64
}

// TariffConfig is an immutable per-state electricity rate table.
// Built once at load time and never mutated afterwards.
type TariffConfig struct {
	RatesPerKWh  map[string]float64
	DefaultState string
}

// RateFor returns the rate for the given state, falling back to the default state.
func (t TariffConfig) RateFor(state string) float64 {
	if rate, ok := t.RatesPerKWh[state]; ok {
		return rate
	}
	return t.RatesPerKWh[t.DefaultState]
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "energy-insights-worker"),
		ServicePort: getEnvAsInt("SERVICE_PORT", 8082),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:               getEnv("RABBITMQ_URL", ""),
			CommandExchange:   getEnv("RABBITMQ_COMMAND_EXCHANGE", "energy-insights.commands.exchange"),
			CommandQueue:      getEnv("RABBITMQ_COMMAND_QUEUE", "energy-insights.commands.queue"),
			CommandRoutingKey: getEnv("RABBITMQ_COMMAND_ROUTING_KEY", "energy.command.*"),
			ReportExchange:    getEnv("RABBITMQ_REPORT_EXCHANGE", "energy-insights.reports.exchange"),
			ReportRoutingKey:  getEnv("RABBITMQ_REPORT_ROUTING_KEY", "energy.report"),
			DLQQueue:          getEnv("RABBITMQ_DLQ_QUEUE", "energy-insights.commands.dlq"),
			PrefetchCount:     getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		Baseline: BaselineConfig{
			WindowDays:          getEnvAsInt("BASELINE_WINDOW_DAYS", 60),
			MinHistoryRecords:   getEnvAsInt("BASELINE_MIN_HISTORY_RECORDS", 24),
			MinSamplesPerHour:   getEnvAsInt("BASELINE_MIN_SAMPLES_PER_HOUR", 5),
			DefaultThresholdMul: getEnvAsFloat("BASELINE_DEFAULT_THRESHOLD", 2.0),
		},
		Detection: DetectionConfig{
			HighConfidenceZScore: getEnvAsFloat("DETECTION_HIGH_CONFIDENCE_ZSCORE", 3.0),
		},
		Feedback: FeedbackConfig{
			ThresholdIncrement: getEnvAsFloat("FEEDBACK_THRESHOLD_INCREMENT", 0.2),
		},
		Forecast: ForecastConfig{
			WindowDays:        getEnvAsInt("FORECAST_WINDOW_DAYS", 30),
			MinHistoryRecords: getEnvAsInt("FORECAST_MIN_HISTORY_RECORDS", 24),
			DefaultHorizon:    getEnvAsInt("FORECAST_DEFAULT_HORIZON_DAYS", 7),
		},
		Appliance: ApplianceConfig{
			WindowDays:        getEnvAsInt("APPLIANCE_WINDOW_DAYS", 7),
			BaseLoadThreshold: getEnvAsFloat("APPLIANCE_BASE_LOAD_THRESHOLD", 50),
			NightLoadOffset:   getEnvAsFloat("APPLIANCE_NIGHT_LOAD_OFFSET", 800),
			MorningPeakOffset: getEnvAsFloat("APPLIANCE_MORNING_PEAK_OFFSET", 1200),
		},
		Tariff: TariffConfig{
			RatesPerKWh: map[string]float64{
				"Delhi":       getEnvAsFloat("TARIFF_RATE_DELHI", 6.5),
				"Maharashtra": getEnvAsFloat("TARIFF_RATE_MAHARASHTRA", 7.2),
				"Karnataka":   getEnvAsFloat("TARIFF_RATE_KARNATAKA", 6.9),
				"Tamil Nadu":  getEnvAsFloat("TARIFF_RATE_TAMIL_NADU", 6.0),
			},
			DefaultState: getEnv("TARIFF_DEFAULT_STATE", "Delhi"),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}
	if _, ok := cfg.Tariff.RatesPerKWh[cfg.Tariff.DefaultState]; !ok {
		return nil, fmt.Errorf("TARIFF_DEFAULT_STATE %q has no configured rate", cfg.Tariff.DefaultState)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
