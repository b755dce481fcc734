package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// DeviceStore 设备存取接口（由 repository.DeviceRepository 实现）
type DeviceStore interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	CreateDevice(ctx context.Context, device *models.Device) (int64, error)
	UpdateDevice(ctx context.Context, deviceID, name string, deviceType, location *string) (int64, error)
	DeleteDevice(ctx context.Context, deviceID string) (int64, error)
}

// ReadingStore 读数查询接口（由 repository.ReadingRepository 实现）
type ReadingStore interface {
	ListReadingsByDevice(ctx context.Context, deviceID string, limit int) ([]models.Reading, error)
	GetLatestReadings(ctx context.Context, deviceID string) ([]models.Reading, error)
}

// LatestSource 最新读数缓存读接口（由 cache.LatestCache 实现）
type LatestSource interface {
	GetLatest(ctx context.Context, deviceID string) ([]models.Reading, error)
}

// CommandSender 手动命令下发接口（由 publisher.CommandPublisher 实现）
type CommandSender interface {
	PublishCommand(deviceID, action string) error
}

// DeviceHandler 设备管理 Handler
type DeviceHandler struct {
	devices  DeviceStore
	readings ReadingStore
	latest   LatestSource
	commands CommandSender
	logger   *zap.Logger
}

// NewDeviceHandler 创建设备管理 Handler
func NewDeviceHandler(devices DeviceStore, readings ReadingStore, latest LatestSource, commands CommandSender, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{
		devices:  devices,
		readings: readings,
		latest:   latest,
		commands: commands,
		logger:   logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *DeviceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	if r.URL.Path == "/api/devices" {
		switch r.Method {
		case http.MethodGet:
			h.ListDevices(w, r)
		case http.MethodPost:
			h.CreateDevice(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/devices/")
	if rest == "" || strings.Count(rest, "/") > 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case strings.HasSuffix(rest, "/data") && r.Method == http.MethodGet:
		h.GetDeviceData(w, r, strings.TrimSuffix(rest, "/data"))
	case strings.HasSuffix(rest, "/latest") && r.Method == http.MethodGet:
		h.GetLatestReadings(w, r, strings.TrimSuffix(rest, "/latest"))
	case strings.HasSuffix(rest, "/command") && r.Method == http.MethodPost:
		h.SendCommand(w, r, strings.TrimSuffix(rest, "/command"))
	case !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.GetDevice(w, r, rest)
	case !strings.Contains(rest, "/") && r.Method == http.MethodPut:
		h.UpdateDevice(w, r, rest)
	case !strings.Contains(rest, "/") && r.Method == http.MethodDelete:
		h.DeleteDevice(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListDevices 查询设备列表
func (h *DeviceHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.ListDevices(r.Context())
	if err != nil {
		h.logger.Error("ListDevices failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}

	writeJSON(w, http.StatusOK, devices)
}

// GetDevice 查询单个设备
func (h *DeviceHandler) GetDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	device, err := h.devices.GetDevice(r.Context(), deviceID)
	if err != nil {
		h.logger.Error("GetDevice failed", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if device == nil {
		writeError(w, http.StatusNotFound, "Device not found")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// CreateDevice 注册新设备
func (h *DeviceHandler) CreateDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string  `json:"device_id"`
		Name     string  `json:"name"`
		Type     *string `json:"type"`
		Location *string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "device_id and name are required")
		return
	}

	device := &models.Device{
		DeviceID: req.DeviceID,
		Name:     req.Name,
		Type:     req.Type,
		Location: req.Location,
	}

	id, err := h.devices.CreateDevice(r.Context(), device)
	if err != nil {
		h.logger.Error("CreateDevice failed", zap.String("device_id", req.DeviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":        id,
		"device_id": req.DeviceID,
		"name":      req.Name,
		"type":      req.Type,
		"location":  req.Location,
	})
}

// UpdateDevice 更新设备基础信息
func (h *DeviceHandler) UpdateDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	var req struct {
		Name     string  `json:"name"`
		Type     *string `json:"type"`
		Location *string `json:"location"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	changes, err := h.devices.UpdateDevice(r.Context(), deviceID, req.Name, req.Type, req.Location)
	if err != nil {
		h.logger.Error("UpdateDevice failed", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Device updated",
		"changes": changes,
	})
}

// DeleteDevice 删除设备
func (h *DeviceHandler) DeleteDevice(w http.ResponseWriter, r *http.Request, deviceID string) {
	changes, err := h.devices.DeleteDevice(r.Context(), deviceID)
	if err != nil {
		h.logger.Error("DeleteDevice failed", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Device deleted",
		"changes": changes,
	})
}

// GetDeviceData 查询设备历史读数
func (h *DeviceHandler) GetDeviceData(w http.ResponseWriter, r *http.Request, deviceID string) {
	limit := parseInt(r.URL.Query().Get("limit"), 100)

	readings, err := h.readings.ListReadingsByDevice(r.Context(), deviceID, limit)
	if err != nil {
		h.logger.Error("GetDeviceData failed", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if readings == nil {
		readings = []models.Reading{}
	}

	writeJSON(w, http.StatusOK, readings)
}

// GetLatestReadings 查询设备每种传感器的最新读数
// 优先走 Redis 缓存，缓存未命中或出错时回退数据库
func (h *DeviceHandler) GetLatestReadings(w http.ResponseWriter, r *http.Request, deviceID string) {
	ctx := r.Context()

	readings, err := h.latest.GetLatest(ctx, deviceID)
	if err != nil {
		h.logger.Warn("Latest cache read failed, falling back to database",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		readings = nil
	}

	if readings == nil {
		readings, err = h.readings.GetLatestReadings(ctx, deviceID)
		if err != nil {
			h.logger.Error("GetLatestReadings failed", zap.String("device_id", deviceID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if readings == nil {
		readings = []models.Reading{}
	}

	writeJSON(w, http.StatusOK, readings)
}

// SendCommand 向设备下发手动命令
func (h *DeviceHandler) SendCommand(w http.ResponseWriter, r *http.Request, deviceID string) {
	var req struct {
		Command string `json:"command"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Command == "" {
		writeError(w, http.StatusBadRequest, "Command is required")
		return
	}

	if err := h.commands.PublishCommand(deviceID, req.Command); err != nil {
		h.logger.Error("SendCommand failed", zap.String("device_id", deviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to send command")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Command sent",
		"device_id": deviceID,
		"command":   req.Command,
	})
}
