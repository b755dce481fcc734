package httpapi

import (
	"context"
	"net/http"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// DeviceCounter 设备统计接口
type DeviceCounter interface {
	CountDevices(ctx context.Context) (int, error)
	CountDevicesByStatus(ctx context.Context, status string) (int, error)
}

// ReadingCounter 读数统计接口
type ReadingCounter interface {
	CountReadings(ctx context.Context) (int, error)
}

// AutomationCounter 规则统计接口
type AutomationCounter interface {
	CountActiveAutomations(ctx context.Context) (int, error)
}

// StatsHandler 仪表盘统计 Handler
type StatsHandler struct {
	devices     DeviceCounter
	readings    ReadingCounter
	automations AutomationCounter
	logger      *zap.Logger
}

// NewStatsHandler 创建统计 Handler
func NewStatsHandler(devices DeviceCounter, readings ReadingCounter, automations AutomationCounter, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{
		devices:     devices,
		readings:    readings,
		automations: automations,
		logger:      logger,
	}
}

// GetStats 汇总统计
// 各项统计相互独立，单项失败记 0 并记录日志，不影响其余各项
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	stats := struct {
		TotalDevices      int `json:"totalDevices"`
		OnlineDevices     int `json:"onlineDevices"`
		TotalReadings     int `json:"totalReadings"`
		ActiveAutomations int `json:"activeAutomations"`
	}{}

	var err error
	if stats.TotalDevices, err = h.devices.CountDevices(ctx); err != nil {
		h.logger.Warn("Failed to count devices", zap.Error(err))
	}
	if stats.OnlineDevices, err = h.devices.CountDevicesByStatus(ctx, models.DeviceStatusOnline); err != nil {
		h.logger.Warn("Failed to count online devices", zap.Error(err))
	}
	if stats.TotalReadings, err = h.readings.CountReadings(ctx); err != nil {
		h.logger.Warn("Failed to count readings", zap.Error(err))
	}
	if stats.ActiveAutomations, err = h.automations.CountActiveAutomations(ctx); err != nil {
		h.logger.Warn("Failed to count active automations", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, stats)
}
