package rules

import (
	"context"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// RuleSource 规则来源（由 AutomationRepository 实现）
type RuleSource interface {
	ListActiveForDevice(ctx context.Context, deviceID string) ([]models.Automation, error)
}

// CommandPublisher 命令发布接口
type CommandPublisher interface {
	PublishCommand(deviceID, action string) error
}

// Engine 自动化规则引擎
// 对每条遥测消息评估该设备所有启用的规则，条件满足则发布命令
type Engine struct {
	rules     RuleSource
	publisher CommandPublisher
	logger    *zap.Logger
}

// NewEngine 创建规则引擎
func NewEngine(rules RuleSource, publisher CommandPublisher, logger *zap.Logger) *Engine {
	return &Engine{
		rules:     rules,
		publisher: publisher,
		logger:    logger,
	}
}

// Evaluate 评估设备的全部启用规则
// 规则查询失败只放弃本次评估；多条规则互不影响，全部独立触发
func (e *Engine) Evaluate(ctx context.Context, deviceID string, fields map[string]float64) {
	automations, err := e.rules.ListActiveForDevice(ctx, deviceID)
	if err != nil {
		e.logger.Error("Failed to load automations",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}

	for _, automation := range automations {
		value, ok := fields[automation.SensorType]
		if !ok {
			// 本次遥测不包含该字段，跳过（不按"条件不满足"处理）
			continue
		}

		if !conditionMet(automation.Condition, value, automation.Threshold) {
			continue
		}

		e.logger.Info("Automation triggered",
			zap.Int64("automation_id", automation.ID),
			zap.String("name", automation.Name),
			zap.String("device_id", deviceID),
			zap.String("sensor_type", automation.SensorType),
			zap.Float64("value", value),
			zap.Float64("threshold", automation.Threshold),
		)

		// 发布失败只记录日志，规则仍视为已触发
		if err := e.publisher.PublishCommand(deviceID, automation.Action); err != nil {
			e.logger.Error("Failed to publish automation command",
				zap.Int64("automation_id", automation.ID),
				zap.String("device_id", deviceID),
				zap.Error(err),
			)
		}
	}
}

// conditionMet 判断条件是否满足
// equal 按浮点数精确相等比较，与存量规则语义保持一致
func conditionMet(condition string, value, threshold float64) bool {
	switch condition {
	case models.ConditionGreater:
		return value > threshold
	case models.ConditionLess:
		return value < threshold
	case models.ConditionEqual:
		return value == threshold
	default:
		return false
	}
}
