package ingest

import (
	"context"
	"time"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// 内置传感器类型到单位的映射
// 不在表内的字段不落库，但仍会原样传给规则引擎
var sensorUnits = map[string]string{
	"temperature": "°C",
	"humidity":    "%",
	"pressure":    "hPa",
	"light":       "lux",
}

// DeviceWriter 设备状态写接口（由 DeviceRepository 实现）
type DeviceWriter interface {
	UpsertStatus(ctx context.Context, deviceID, status string, lastSeen time.Time) error
}

// ReadingWriter 读数写接口（由 ReadingRepository 实现）
type ReadingWriter interface {
	AppendReading(ctx context.Context, deviceID, sensorType string, value float64, unit string, timestamp time.Time) error
}

// LatestWriter 最新读数缓存写接口（由 cache.LatestCache 实现）
type LatestWriter interface {
	SetLatest(ctx context.Context, deviceID, sensorType string, value float64, unit string, timestamp time.Time) error
}

// Evaluator 规则评估接口（由 rules.Engine 实现）
type Evaluator interface {
	Evaluate(ctx context.Context, deviceID string, fields map[string]float64)
}

// Processor 遥测/状态消息处理器
// 单条消息内各步骤相互独立：某一步失败记录日志后继续，绝不中断整个管道
type Processor struct {
	devices  DeviceWriter
	readings ReadingWriter
	latest   LatestWriter
	engine   Evaluator
	logger   *zap.Logger
}

// NewProcessor 创建消息处理器
func NewProcessor(devices DeviceWriter, readings ReadingWriter, latest LatestWriter, engine Evaluator, logger *zap.Logger) *Processor {
	return &Processor{
		devices:  devices,
		readings: readings,
		latest:   latest,
		engine:   engine,
		logger:   logger,
	}
}

// IngestTelemetry 处理一条遥测消息
// 1. 无条件把设备置为 online 并刷新 last_seen（未注册设备为空操作）
// 2. 逐字段写入内置传感器读数，未知字段忽略
// 3. 用完整字段集触发规则评估（规则可能引用内置之外的字段）
func (p *Processor) IngestTelemetry(ctx context.Context, deviceID string, fields map[string]float64) {
	now := time.Now()

	if err := p.devices.UpsertStatus(ctx, deviceID, models.DeviceStatusOnline, now); err != nil {
		p.logger.Error("Failed to update device liveness",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	for sensorType, value := range fields {
		unit, ok := sensorUnits[sensorType]
		if !ok {
			continue
		}

		if err := p.readings.AppendReading(ctx, deviceID, sensorType, value, unit, now); err != nil {
			p.logger.Error("Failed to store sensor reading",
				zap.String("device_id", deviceID),
				zap.String("sensor_type", sensorType),
				zap.Error(err),
			)
			continue
		}

		if err := p.latest.SetLatest(ctx, deviceID, sensorType, value, unit, now); err != nil {
			p.logger.Warn("Failed to update latest cache",
				zap.String("device_id", deviceID),
				zap.String("sensor_type", sensorType),
				zap.Error(err),
			)
		}
	}

	p.engine.Evaluate(ctx, deviceID, fields)
}

// IngestStatus 处理一条状态消息，状态字符串原样写入
func (p *Processor) IngestStatus(ctx context.Context, deviceID, status string) {
	if err := p.devices.UpsertStatus(ctx, deviceID, status, time.Now()); err != nil {
		p.logger.Error("Failed to update device status",
			zap.String("device_id", deviceID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
