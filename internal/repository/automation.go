package repository

import (
	"context"
	"database/sql"
	"fmt"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// AutomationRepository 自动化规则仓库
type AutomationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAutomationRepository 创建自动化规则仓库
func NewAutomationRepository(db *sql.DB, logger *zap.Logger) *AutomationRepository {
	return &AutomationRepository{
		db:     db,
		logger: logger,
	}
}

// ListActiveForDevice 查询绑定到指定设备且启用的规则
// 规则引擎每次评估都走这条查询，active=false 的规则在这里被过滤掉
func (r *AutomationRepository) ListActiveForDevice(ctx context.Context, deviceID string) ([]models.Automation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, device_id, sensor_type, condition, threshold, action, active, created_at
		 FROM automations
		 WHERE device_id = $1 AND active = TRUE`,
		deviceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query active automations: %w", err)
	}
	defer rows.Close()

	return scanAutomations(rows)
}

// ListAutomations 查询所有规则（按创建时间倒序）
func (r *AutomationRepository) ListAutomations(ctx context.Context) ([]models.Automation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, device_id, sensor_type, condition, threshold, action, active, created_at
		 FROM automations ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer rows.Close()

	return scanAutomations(rows)
}

// CreateAutomation 创建规则（默认启用）
func (r *AutomationRepository) CreateAutomation(ctx context.Context, automation *models.Automation) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO automations (name, device_id, sensor_type, condition, threshold, action)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		automation.Name,
		automation.DeviceID,
		automation.SensorType,
		automation.Condition,
		automation.Threshold,
		automation.Action,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create automation: %w", err)
	}

	return id, nil
}

// ToggleAutomation 翻转规则的启用状态，返回受影响行数
func (r *AutomationRepository) ToggleAutomation(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE automations SET active = NOT active WHERE id = $1`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to toggle automation: %w", err)
	}

	return result.RowsAffected()
}

// DeleteAutomation 删除规则，返回受影响行数
func (r *AutomationRepository) DeleteAutomation(ctx context.Context, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM automations WHERE id = $1`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete automation: %w", err)
	}

	return result.RowsAffected()
}

// CountActiveAutomations 统计启用中的规则数
func (r *AutomationRepository) CountActiveAutomations(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM automations WHERE active = TRUE`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active automations: %w", err)
	}
	return count, nil
}

func scanAutomations(rows *sql.Rows) ([]models.Automation, error) {
	var automations []models.Automation
	for rows.Next() {
		var automation models.Automation
		var deviceID, sensorType, condition, action sql.NullString
		var threshold sql.NullFloat64

		if err := rows.Scan(
			&automation.ID,
			&automation.Name,
			&deviceID,
			&sensorType,
			&condition,
			&threshold,
			&action,
			&automation.Active,
			&automation.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		automation.DeviceID = deviceID.String
		automation.SensorType = sensorType.String
		automation.Condition = condition.String
		automation.Threshold = threshold.Float64
		automation.Action = action.String

		automations = append(automations, automation)
	}

	return automations, rows.Err()
}
