package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// ReadingRepository 传感器读数仓库（sensor_data 表，只追加）
type ReadingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReadingRepository 创建传感器读数仓库
func NewReadingRepository(db *sql.DB, logger *zap.Logger) *ReadingRepository {
	return &ReadingRepository{
		db:     db,
		logger: logger,
	}
}

// AppendReading 追加一条传感器读数
func (r *ReadingRepository) AppendReading(ctx context.Context, deviceID, sensorType string, value float64, unit string, timestamp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensor_data (device_id, sensor_type, value, unit, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		deviceID, sensorType, value, unit, timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append reading: %w", err)
	}

	return nil
}

// ListReadingsByDevice 查询设备的历史读数（按时间倒序，最多 limit 条）
func (r *ReadingRepository) ListReadingsByDevice(ctx context.Context, deviceID string, limit int) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, sensor_type, value, unit, timestamp
		 FROM sensor_data
		 WHERE device_id = $1
		 ORDER BY timestamp DESC
		 LIMIT $2`,
		deviceID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// GetLatestReadings 查询设备每种传感器的最新读数
func (r *ReadingRepository) GetLatestReadings(ctx context.Context, deviceID string) ([]models.Reading, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT ON (sensor_type)
			id, device_id, sensor_type, value, unit, timestamp
		 FROM sensor_data
		 WHERE device_id = $1
		 ORDER BY sensor_type, timestamp DESC`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest readings: %w", err)
	}
	defer rows.Close()

	return scanReadings(rows)
}

// CountReadings 统计读数总量
func (r *ReadingRepository) CountReadings(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sensor_data`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

func scanReadings(rows *sql.Rows) ([]models.Reading, error) {
	var readings []models.Reading
	for rows.Next() {
		var reading models.Reading
		if err := rows.Scan(
			&reading.ID,
			&reading.DeviceID,
			&reading.SensorType,
			&reading.Value,
			&reading.Unit,
			&reading.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		readings = append(readings, reading)
	}

	return readings, rows.Err()
}
