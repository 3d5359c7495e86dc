package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ritesh-1918/SHEM-GDG/internal/db"
)

// Repository handles database operations against the three collections:
// consumption_history, baseline_statistics and anomaly_events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertConsumption stores one hourly consumption reading
func (r *Repository) InsertConsumption(ctx context.Context, record *db.ConsumptionRecord) error {
	query := `
		INSERT INTO consumption_history (
			user_id, timestamp, hourly_consumption, hour_of_day, day_of_week, temperature
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		record.UserID,
		record.Timestamp,
		record.HourlyConsumption,
		record.HourOfDay,
		record.DayOfWeek,
		record.Temperature,
	).Scan(&record.ID)

	if err != nil {
		return fmt.Errorf("failed to insert consumption record: %w", err)
	}

	return nil
}

// GetConsumptionSince returns a user's consumption history from the cutoff
// onwards, ordered by timestamp ascending.
func (r *Repository) GetConsumptionSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]db.ConsumptionRecord, error) {
	query := `
		SELECT id, user_id, timestamp, hourly_consumption, hour_of_day, day_of_week, temperature
		FROM consumption_history
		WHERE user_id = $1 AND timestamp >= $2
		ORDER BY timestamp ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query consumption history: %w", err)
	}
	defer rows.Close()

	var records []db.ConsumptionRecord
	for rows.Next() {
		var rec db.ConsumptionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Timestamp,
			&rec.HourlyConsumption,
			&rec.HourOfDay,
			&rec.DayOfWeek,
			&rec.Temperature,
		); err != nil {
			return nil, fmt.Errorf("failed to scan consumption record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// GetBaseline returns the baseline statistic for (user, hour).
// Returns (nil, nil) when no baseline exists yet.
func (r *Repository) GetBaseline(ctx context.Context, userID uuid.UUID, hour int) (*db.BaselineStatistic, error) {
	query := `
		SELECT user_id, hour, mean, std_dev, min_val, max_val, data_points, threshold_multiplier, updated_at
		FROM baseline_statistics
		WHERE user_id = $1 AND hour = $2
	`

	var stat db.BaselineStatistic
	err := r.pool.QueryRow(ctx, query, userID, hour).Scan(
		&stat.UserID,
		&stat.Hour,
		&stat.Mean,
		&stat.StdDev,
		&stat.MinVal,
		&stat.MaxVal,
		&stat.DataPoints,
		&stat.ThresholdMultiplier,
		&stat.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query baseline: %w", err)
	}

	return &stat, nil
}

// ListBaselines returns all baseline statistics for a user ordered by hour
func (r *Repository) ListBaselines(ctx context.Context, userID uuid.UUID) ([]db.BaselineStatistic, error) {
	query := `
		SELECT user_id, hour, mean, std_dev, min_val, max_val, data_points, threshold_multiplier, updated_at
		FROM baseline_statistics
		WHERE user_id = $1
		ORDER BY hour ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query baselines: %w", err)
	}
	defer rows.Close()

	var stats []db.BaselineStatistic
	for rows.Next() {
		var stat db.BaselineStatistic
		if err := rows.Scan(
			&stat.UserID,
			&stat.Hour,
			&stat.Mean,
			&stat.StdDev,
			&stat.MinVal,
			&stat.MaxVal,
			&stat.DataPoints,
			&stat.ThresholdMultiplier,
			&stat.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan baseline: %w", err)
		}
		stats = append(stats, stat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return stats, nil
}

// UpsertBaselines bulk writes baseline statistics, insert-or-replace keyed
// by (user_id, hour). Covered hours are overwritten wholesale, including
// threshold_multiplier.
func (r *Repository) UpsertBaselines(ctx context.Context, stats []db.BaselineStatistic) error {
	if len(stats) == 0 {
		return nil
	}

	query := `
		INSERT INTO baseline_statistics (
			user_id, hour, mean, std_dev, min_val, max_val, data_points, threshold_multiplier, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, hour) DO UPDATE SET
			mean = EXCLUDED.mean,
			std_dev = EXCLUDED.std_dev,
			min_val = EXCLUDED.min_val,
			max_val = EXCLUDED.max_val,
			data_points = EXCLUDED.data_points,
			threshold_multiplier = EXCLUDED.threshold_multiplier,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	batch := &pgx.Batch{}
	for _, stat := range stats {
		batch.Queue(query,
			stat.UserID,
			stat.Hour,
			stat.Mean,
			stat.StdDev,
			stat.MinVal,
			stat.MaxVal,
			stat.DataPoints,
			stat.ThresholdMultiplier,
			now,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range stats {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert baseline: %w", err)
		}
	}

	return nil
}

// InsertAnomalyEvent stores a new anomaly event and returns the stored row
func (r *Repository) InsertAnomalyEvent(ctx context.Context, event *db.AnomalyEvent) (*db.AnomalyEvent, error) {
	query := `
		INSERT INTO anomaly_events (
			user_id, hour_of_day, consumption, expected_mean, expected_std_dev,
			z_score, confidence, deviation, deviation_percent,
			possible_cause, recommendation, status, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, timestamp
	`

	stored := *event
	err := r.pool.QueryRow(ctx, query,
		event.UserID,
		event.HourOfDay,
		event.Consumption,
		event.ExpectedMean,
		event.ExpectedStdDev,
		event.ZScore,
		event.Confidence,
		event.Deviation,
		event.DeviationPercent,
		event.PossibleCause,
		event.Recommendation,
		event.Status,
		time.Now(),
	).Scan(&stored.ID, &stored.Timestamp)

	if err != nil {
		return nil, fmt.Errorf("failed to insert anomaly event: %w", err)
	}

	return &stored, nil
}

// GetAnomalyEvent returns an anomaly event by id, (nil, nil) when absent
func (r *Repository) GetAnomalyEvent(ctx context.Context, id uuid.UUID) (*db.AnomalyEvent, error) {
	query := `
		SELECT id, user_id, hour_of_day, consumption, expected_mean, expected_std_dev,
			z_score, confidence, deviation, deviation_percent,
			possible_cause, recommendation, status, user_feedback, timestamp
		FROM anomaly_events
		WHERE id = $1
	`

	var event db.AnomalyEvent
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.UserID,
		&event.HourOfDay,
		&event.Consumption,
		&event.ExpectedMean,
		&event.ExpectedStdDev,
		&event.ZScore,
		&event.Confidence,
		&event.Deviation,
		&event.DeviationPercent,
		&event.PossibleCause,
		&event.Recommendation,
		&event.Status,
		&event.UserFeedback,
		&event.Timestamp,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query anomaly event: %w", err)
	}

	return &event, nil
}

// UpdateAnomalyStatus patches an anomaly event's status and, when non-nil,
// its user feedback.
func (r *Repository) UpdateAnomalyStatus(ctx context.Context, id uuid.UUID, status string, userFeedback []byte) error {
	query := `
		UPDATE anomaly_events
		SET status = $1, user_feedback = COALESCE($2, user_feedback)
		WHERE id = $3
	`

	_, err := r.pool.Exec(ctx, query, status, userFeedback, id)
	if err != nil {
		return fmt.Errorf("failed to update anomaly status: %w", err)
	}

	return nil
}

// SetThresholdMultiplier overwrites the threshold multiplier for (user, hour).
// Plain last-writer-wins; callers doing read-modify-write are not serialized.
func (r *Repository) SetThresholdMultiplier(ctx context.Context, userID uuid.UUID, hour int, multiplier float64) error {
	query := `
		UPDATE baseline_statistics
		SET threshold_multiplier = $1
		WHERE user_id = $2 AND hour = $3
	`

	_, err := r.pool.Exec(ctx, query, multiplier, userID, hour)
	if err != nil {
		return fmt.Errorf("failed to update threshold multiplier: %w", err)
	}

	return nil
}

// RecentAnomalies returns the user's most recent anomaly events, newest first
func (r *Repository) RecentAnomalies(ctx context.Context, userID uuid.UUID, limit int) ([]db.AnomalyEvent, error) {
	query := `
		SELECT id, user_id, hour_of_day, consumption, expected_mean, expected_std_dev,
			z_score, confidence, deviation, deviation_percent,
			possible_cause, recommendation, status, user_feedback, timestamp
		FROM anomaly_events
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query anomaly events: %w", err)
	}
	defer rows.Close()

	var events []db.AnomalyEvent
	for rows.Next() {
		var event db.AnomalyEvent
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.HourOfDay,
			&event.Consumption,
			&event.ExpectedMean,
			&event.ExpectedStdDev,
			&event.ZScore,
			&event.Confidence,
			&event.Deviation,
			&event.DeviationPercent,
			&event.PossibleCause,
			&event.Recommendation,
			&event.Status,
			&event.UserFeedback,
			&event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anomaly event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return events, nil
}
