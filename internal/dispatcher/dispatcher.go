package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MessageKind 入站消息分类
type MessageKind int

const (
	KindUnknown MessageKind = iota // 未识别的 kind 段，静默丢弃
	KindTelemetry
	KindStatus
)

// InboundMessage 按主题结构分类后的入站消息
// Kind 为 KindTelemetry 时 Fields 有效，KindStatus 时 Status 有效
type InboundMessage struct {
	Kind     MessageKind
	DeviceID string
	Fields   map[string]float64
	Status   string
}

// Ingestor 分类后消息的下游处理接口（由 ingest.Processor 实现）
type Ingestor interface {
	IngestTelemetry(ctx context.Context, deviceID string, fields map[string]float64)
	IngestStatus(ctx context.Context, deviceID, status string)
}

// Dispatcher 入站消息分发器
// 主题格式: <topicBase>/<device_id>/<kind>，kind ∈ {data, status}
type Dispatcher struct {
	topicBase string
	ingestor  Ingestor
	logger    *zap.Logger
}

// NewDispatcher 创建消息分发器
func NewDispatcher(topicBase string, ingestor Ingestor, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		topicBase: topicBase,
		ingestor:  ingestor,
		logger:    logger,
	}
}

// Handle 分类并分发一条入站消息
// 格式错误的消息丢弃并记录日志，永远返回 nil：单个设备的坏消息不能影响其他设备
func (d *Dispatcher) Handle(ctx context.Context, topic string, payload []byte) error {
	msg, err := d.classify(topic, payload)
	if err != nil {
		d.logger.Warn("Dropping malformed message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil
	}

	switch msg.Kind {
	case KindTelemetry:
		d.ingestor.IngestTelemetry(ctx, msg.DeviceID, msg.Fields)
	case KindStatus:
		d.ingestor.IngestStatus(ctx, msg.DeviceID, msg.Status)
	case KindUnknown:
		// 前向兼容：未识别的 kind 段不算错误
		d.logger.Debug("Ignoring message with unrecognized kind segment",
			zap.String("topic", topic),
		)
	}

	return nil
}

// classify 按主题结构对消息分类
func (d *Dispatcher) classify(topic string, payload []byte) (*InboundMessage, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != d.topicBase || parts[1] == "" {
		return nil, fmt.Errorf("unexpected topic shape: %s", topic)
	}

	msg := &InboundMessage{DeviceID: parts[1]}

	switch parts[2] {
	case "data":
		var fields map[string]float64
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("invalid telemetry payload: %w", err)
		}
		msg.Kind = KindTelemetry
		msg.Fields = fields
	case "status":
		msg.Kind = KindStatus
		msg.Status = string(payload)
	default:
		msg.Kind = KindUnknown
	}

	return msg, nil
}
