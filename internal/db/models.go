package db

import (
	"time"

	"github.com/google/uuid"
)

// ConsumptionRecord represents one hourly consumption reading in the database.
// Records are append-only; derived statistics never modify them.
type ConsumptionRecord struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	Timestamp         time.Time
	HourlyConsumption float64
	HourOfDay         int
	DayOfWeek         string
	Temperature       *float64
}

// BaselineStatistic represents the per-hour consumption profile of a user.
// One row per (user_id, hour); recomputed wholesale by the baseline engine,
// except threshold_multiplier which is also widened by feedback.
type BaselineStatistic struct {
	UserID              uuid.UUID
	Hour                int
	Mean                float64
	StdDev              float64
	MinVal              float64
	MaxVal              float64
	DataPoints          int
	ThresholdMultiplier float64
	UpdatedAt           time.Time
}

// AnomalyEvent represents a flagged consumption reading.
// Created by the detector with status "detected"; only feedback
// handling mutates it afterwards.
type AnomalyEvent struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	HourOfDay        int
	Consumption      float64
	ExpectedMean     float64
	ExpectedStdDev   float64
	ZScore           float64
	Confidence       string
	Deviation        string
	DeviationPercent float64
	PossibleCause    string
	Recommendation   string
	Status           string
	UserFeedback     []byte
	Timestamp        time.Time
}

// AnomalyEvent status values.
const (
	AnomalyStatusDetected      = "detected"
	AnomalyStatusAcknowledged  = "acknowledged"
	AnomalyStatusFalsePositive = "false_positive"
)
