package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// DeviceRepository 设备仓库
type DeviceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeviceRepository 创建设备仓库
func NewDeviceRepository(db *sql.DB, logger *zap.Logger) *DeviceRepository {
	return &DeviceRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertStatus 更新设备状态和最后在线时间
// 未注册的设备更新 0 行，不算错误（设备注册由 CRUD 层负责）
func (r *DeviceRepository) UpsertStatus(ctx context.Context, deviceID, status string, lastSeen time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET status = $1, last_seen = $2 WHERE device_id = $3`,
		status, lastSeen, deviceID,
	)
	if err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		r.logger.Debug("Status update for unregistered device",
			zap.String("device_id", deviceID),
			zap.String("status", status),
		)
	}

	return nil
}

// ListDevices 查询所有设备（按创建时间倒序）
func (r *DeviceRepository) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, name, type, location, status, last_seen, created_at
		 FROM devices ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}

	return devices, rows.Err()
}

// GetDevice 查询单个设备，不存在时返回 nil
func (r *DeviceRepository) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, device_id, name, type, location, status, last_seen, created_at
		 FROM devices WHERE device_id = $1`,
		deviceID,
	)

	device, err := scanDevice(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return device, nil
}

// CreateDevice 注册新设备，初始状态 offline
func (r *DeviceRepository) CreateDevice(ctx context.Context, device *models.Device) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO devices (device_id, name, type, location, status)
		 VALUES ($1, $2, $3, $4, 'offline')
		 RETURNING id`,
		device.DeviceID, device.Name, device.Type, device.Location,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create device: %w", err)
	}

	return id, nil
}

// UpdateDevice 更新设备基础信息，返回受影响行数
func (r *DeviceRepository) UpdateDevice(ctx context.Context, deviceID, name string, deviceType, location *string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = $1, type = $2, location = $3 WHERE device_id = $4`,
		name, deviceType, location, deviceID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update device: %w", err)
	}

	return result.RowsAffected()
}

// DeleteDevice 删除设备，返回受影响行数
func (r *DeviceRepository) DeleteDevice(ctx context.Context, deviceID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM devices WHERE device_id = $1`,
		deviceID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete device: %w", err)
	}

	return result.RowsAffected()
}

// CountDevices 统计设备总数
func (r *DeviceRepository) CountDevices(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return count, nil
}

// CountDevicesByStatus 统计指定状态的设备数
func (r *DeviceRepository) CountDevicesByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM devices WHERE status = $1`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count devices by status: %w", err)
	}
	return count, nil
}

// scanner 兼容 *sql.Row 和 *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(s scanner) (*models.Device, error) {
	var device models.Device
	var deviceType, location sql.NullString
	var lastSeen sql.NullTime

	if err := s.Scan(
		&device.ID,
		&device.DeviceID,
		&device.Name,
		&deviceType,
		&location,
		&device.Status,
		&lastSeen,
		&device.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan device: %w", err)
	}

	if deviceType.Valid {
		device.Type = &deviceType.String
	}
	if location.Valid {
		device.Location = &location.String
	}
	if lastSeen.Valid {
		device.LastSeen = &lastSeen.Time
	}

	return &device, nil
}
