package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// MetricReading is one numeric health-metric data point (weight, blood
// pressure, heart rate, ...) from the health calculator service.
type MetricReading struct {
	MetricType  string
	MetricValue float64
	Unit        string
	RecordedAt  *time.Time
}

// Calculation is one stored derived-calculation result (BMI, BMR, TDEE,
// ...). ResultData carries the calculator's JSON payload.
type Calculation struct {
	CalculationType string
	ResultData      map[string]any
	CalculatedAt    *time.Time
}

// MetricHistory returns the most recent metric readings for a user across
// all metric types, newest first.
func (s *PostgresStore) MetricHistory(ctx context.Context, userID int64, limit int) ([]MetricReading, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT metric_type, metric_value, COALESCE(unit, ''), recorded_at
		FROM health_metrics_history
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query metric history: %w", err)
	}
	defer rows.Close()

	var readings []MetricReading
	for rows.Next() {
		var m MetricReading
		var recordedAt time.Time
		if err := rows.Scan(&m.MetricType, &m.MetricValue, &m.Unit, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		m.RecordedAt = &recordedAt
		readings = append(readings, m)
	}
	return readings, rows.Err()
}

// CalculationHistory returns the most recent derived-calculation results
// for a user, newest first.
func (s *PostgresStore) CalculationHistory(ctx context.Context, userID int64, limit int) ([]Calculation, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	query := `
		SELECT calculation_type, result_data, calculated_at
		FROM health_calculations
		WHERE user_id = $1
		ORDER BY calculated_at DESC
		LIMIT $2
	`
	rows, err := s.DB.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query calculation history: %w", err)
	}
	defer rows.Close()

	var calcs []Calculation
	for rows.Next() {
		var c Calculation
		var raw []byte
		var calculatedAt time.Time
		if err := rows.Scan(&c.CalculationType, &raw, &calculatedAt); err != nil {
			return nil, fmt.Errorf("scan calculation row: %w", err)
		}
		c.CalculatedAt = &calculatedAt
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &c.ResultData); err != nil {
				// Malformed payloads degrade to an empty result, not a failed query
				c.ResultData = map[string]any{}
			}
		} else {
			c.ResultData = map[string]any{}
		}
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}
