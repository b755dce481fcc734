package publisher

import (
	"fmt"

	"go.uber.org/zap"
)

// mqttPublisher 发布端需要的最小MQTT客户端接口
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// CommandPublisher 下行命令发布器
// 主题格式: <topicBase>/<device_id>/command，载荷为命令字符串本身
type CommandPublisher struct {
	client    mqttPublisher
	topicBase string
	qos       byte
	logger    *zap.Logger
}

// NewCommandPublisher 创建命令发布器
func NewCommandPublisher(client mqttPublisher, topicBase string, qos byte, logger *zap.Logger) *CommandPublisher {
	return &CommandPublisher{
		client:    client,
		topicBase: topicBase,
		qos:       qos,
		logger:    logger,
	}
}

// PublishCommand 向设备发布命令（发后不管，失败只记录日志，不重试）
func (p *CommandPublisher) PublishCommand(deviceID, action string) error {
	topic := fmt.Sprintf("%s/%s/command", p.topicBase, deviceID)

	if err := p.client.Publish(topic, p.qos, false, []byte(action)); err != nil {
		return fmt.Errorf("failed to publish command to %s: %w", topic, err)
	}

	p.logger.Info("Command published",
		zap.String("device_id", deviceID),
		zap.String("topic", topic),
		zap.String("action", action),
	)

	return nil
}
