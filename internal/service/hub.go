package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"wisefido-iot-hub/internal/cache"
	"wisefido-iot-hub/internal/common/database"
	commonmqtt "wisefido-iot-hub/internal/common/mqtt"
	rediscommon "wisefido-iot-hub/internal/common/redis"
	"wisefido-iot-hub/internal/config"
	"wisefido-iot-hub/internal/dispatcher"
	httpapi "wisefido-iot-hub/internal/http"
	"wisefido-iot-hub/internal/ingest"
	"wisefido-iot-hub/internal/publisher"
	"wisefido-iot-hub/internal/repository"
	"wisefido-iot-hub/internal/rules"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// HubService IoT Hub 服务
// 组装并持有接入管道（MQTT → 分发 → 入库/评估 → 命令发布）和 REST API
type HubService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
	mqttClient  *commonmqtt.Client
	dispatcher  *dispatcher.Dispatcher
	httpServer  *http.Server
}

// NewHubService 创建 IoT Hub 服务
func NewHubService(cfg *config.Config, logger *zap.Logger) (*HubService, error) {
	// 初始化数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repository.InitSchema(db); err != nil {
		return nil, err
	}

	// 初始化Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// 初始化MQTT
	mqttClient, err := commonmqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, err
	}

	// 创建Repository
	deviceRepo := repository.NewDeviceRepository(db, logger)
	readingRepo := repository.NewReadingRepository(db, logger)
	automationRepo := repository.NewAutomationRepository(db, logger)

	// 创建缓存与发布器
	latestCache := cache.NewLatestCache(cfg, redisClient, logger)
	commandPublisher := publisher.NewCommandPublisher(mqttClient, cfg.Hub.TopicBase, cfg.MQTT.QoS, logger)

	// 组装接入管道
	engine := rules.NewEngine(automationRepo, commandPublisher, logger)
	processor := ingest.NewProcessor(deviceRepo, readingRepo, latestCache, engine, logger)
	disp := dispatcher.NewDispatcher(cfg.Hub.TopicBase, processor, logger)

	// 组装REST API
	router := httpapi.NewRouter(logger)
	router.RegisterAPIRoutes(
		httpapi.NewDeviceHandler(deviceRepo, readingRepo, latestCache, commandPublisher, logger),
		httpapi.NewAutomationHandler(automationRepo, logger),
		httpapi.NewStatsHandler(deviceRepo, readingRepo, automationRepo, logger),
	)

	return &HubService{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		dispatcher:  disp,
		httpServer: &http.Server{
			Addr:    cfg.HTTP.Addr,
			Handler: router,
		},
	}, nil
}

// Start 启动服务：订阅设备主题并启动HTTP服务
// 阻塞直到 ctx 取消或 HTTP 服务异常退出
func (s *HubService) Start(ctx context.Context) error {
	dataTopic := s.config.Hub.TopicBase + "/+/data"
	statusTopic := s.config.Hub.TopicBase + "/+/status"

	handler := func(topic string, payload []byte) error {
		return s.dispatcher.Handle(ctx, topic, payload)
	}

	if err := s.mqttClient.Subscribe(dataTopic, s.config.MQTT.QoS, handler); err != nil {
		return err
	}
	if err := s.mqttClient.Subscribe(statusTopic, s.config.MQTT.QoS, handler); err != nil {
		return err
	}
	s.logger.Info("Subscribed to device topics",
		zap.String("data_topic", dataTopic),
		zap.String("status_topic", statusTopic),
	)

	httpErrChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrChan <- err
		}
	}()
	s.logger.Info("IoT hub started", zap.String("http_addr", s.config.HTTP.Addr))

	select {
	case <-ctx.Done():
		return nil
	case err := <-httpErrChan:
		return fmt.Errorf("http server error: %w", err)
	}
}

// Stop 停止服务：停止接收新消息，关闭各连接
func (s *HubService) Stop() {
	s.logger.Info("Stopping IoT hub")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down HTTP server", zap.Error(err))
	}

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Error closing Redis client", zap.Error(err))
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("IoT hub stopped")
}
