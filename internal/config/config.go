package config

import (
	"os"

	"wisefido-iot-hub/internal/common/config"

	"github.com/google/uuid"
)

// Config IoT Hub 服务配置
type Config struct {
	Database config.DatabaseConfig
	Redis    config.RedisConfig
	MQTT     config.MQTTConfig

	// Hub 特定配置
	Hub struct {
		TopicBase string // MQTT 主题前缀，如 "iot-funcionando"
	}

	HTTP struct {
		Addr string
	}

	Cache struct {
		LatestKeyPrefix string // 最新读数缓存键前缀，如 "iot:device:"
		LatestSuffix    string // 最新读数缓存键后缀，如 ":latest"
		LatestTTL       int    // 最新读数缓存 TTL（秒）
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 数据库默认值
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "iothub"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	// Redis 默认值
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.LoadFromEnv("REDIS")

	// MQTT 默认值（公共测试 broker，与设备固件保持一致）
	cfg.MQTT.Broker = "tcp://test.mosquitto.org:1883"
	cfg.MQTT.ClientID = "iot-hub-" + uuid.NewString()[:8]
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Hub.TopicBase = getEnv("MQTT_TOPIC_BASE", "iot-funcionando")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":3000")

	cfg.Cache.LatestKeyPrefix = getEnv("CACHE_LATEST_PREFIX", "iot:device:")
	cfg.Cache.LatestSuffix = ":latest"
	cfg.Cache.LatestTTL = 3600 // 1小时

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
