package validator

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
	"github.com/ritesh-1918/SHEM-GDG/tools/timebucket"
)

// ValidationResult holds validation outcome
type ValidationResult struct {
	IsValid bool
	Reason  string
}

// Reading is an inbound consumption reading before validation.
// Hour, day and timestamp are optional; missing values are derived.
type Reading struct {
	UserID      string
	Consumption *float64
	Hour        *int
	DayOfWeek   string
	Temperature *float64
	Timestamp   string
}

// Validator checks inbound readings before any store access
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateReading validates one consumption reading. On success it returns
// the record to store, with hour, weekday and timestamp filled in from the
// reading or derived from receivedAt.
func (v *Validator) ValidateReading(reading Reading, receivedAt time.Time) (*db.ConsumptionRecord, ValidationResult) {
	userID, err := uuid.Parse(reading.UserID)
	if err != nil {
		return nil, ValidationResult{Reason: fmt.Sprintf("missing or invalid user id: %v", err)}
	}

	if reading.Consumption == nil {
		return nil, ValidationResult{Reason: "missing consumption value"}
	}
	consumption := *reading.Consumption
	if math.IsNaN(consumption) || math.IsInf(consumption, 0) {
		return nil, ValidationResult{Reason: "non-finite consumption value"}
	}
	if consumption < 0 {
		return nil, ValidationResult{Reason: "negative consumption value"}
	}

	timestamp := receivedAt.UTC()
	if reading.Timestamp != "" {
		parsed, err := timebucket.ParseReadingTimestamp(reading.Timestamp)
		if err != nil {
			return nil, ValidationResult{Reason: fmt.Sprintf("invalid timestamp: %v", err)}
		}
		timestamp = parsed.UTC()
	}
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	hour := timebucket.HourOfDay(timestamp)
	if reading.Hour != nil {
		if *reading.Hour < 0 || *reading.Hour > 23 {
			return nil, ValidationResult{Reason: fmt.Sprintf("hour %d out of range [0,23]", *reading.Hour)}
		}
		hour = *reading.Hour
	}

	dayOfWeek := reading.DayOfWeek
	if dayOfWeek == "" {
		dayOfWeek = timebucket.DayOfWeek(timestamp)
	}

	return &db.ConsumptionRecord{
		UserID:            userID,
		Timestamp:         timestamp,
		HourlyConsumption: consumption,
		HourOfDay:         hour,
		DayOfWeek:         dayOfWeek,
		Temperature:       reading.Temperature,
	}, ValidationResult{IsValid: true}
}
