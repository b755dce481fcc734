package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-iot-hub/internal/config"
	"wisefido-iot-hub/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// LatestCache 每设备最新读数缓存
// 键格式: <prefix><device_id><suffix>，Hash 字段为 sensor_type，值为读数 JSON
// 缓存只是 /latest 查询的快路径，真实数据以 sensor_data 表为准
type LatestCache struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// 缓存中的读数条目
type latestEntry struct {
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLatestCache 创建最新读数缓存
func NewLatestCache(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *LatestCache {
	return &LatestCache{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (c *LatestCache) key(deviceID string) string {
	return c.config.Cache.LatestKeyPrefix + deviceID + c.config.Cache.LatestSuffix
}

// SetLatest 写入一个传感器字段的最新读数
func (c *LatestCache) SetLatest(ctx context.Context, deviceID, sensorType string, value float64, unit string, timestamp time.Time) error {
	entry := latestEntry{
		Value:     value,
		Unit:      unit,
		Timestamp: timestamp,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal latest entry: %w", err)
	}

	key := c.key(deviceID)
	if err := c.redisClient.HSet(ctx, key, sensorType, data).Err(); err != nil {
		return fmt.Errorf("failed to cache latest reading: %w", err)
	}

	ttl := time.Duration(c.config.Cache.LatestTTL) * time.Second
	if err := c.redisClient.Expire(ctx, key, ttl).Err(); err != nil {
		c.logger.Warn("Failed to set latest cache TTL",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}

	return nil
}

// GetLatest 读取设备每种传感器的最新读数
// 缓存不存在时返回 (nil, nil)，由调用方回退到数据库
func (c *LatestCache) GetLatest(ctx context.Context, deviceID string) ([]models.Reading, error) {
	fields, err := c.redisClient.HGetAll(ctx, c.key(deviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read latest cache: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	readings := make([]models.Reading, 0, len(fields))
	for sensorType, raw := range fields {
		var entry latestEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			c.logger.Warn("Skipping corrupt latest cache entry",
				zap.String("device_id", deviceID),
				zap.String("sensor_type", sensorType),
				zap.Error(err),
			)
			continue
		}
		readings = append(readings, models.Reading{
			DeviceID:   deviceID,
			SensorType: sensorType,
			Value:      entry.Value,
			Unit:       entry.Unit,
			Timestamp:  entry.Timestamp,
		})
	}

	return readings, nil
}
