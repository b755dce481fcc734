package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"wisefido-iot-hub/internal/models"

	"go.uber.org/zap"
)

// AutomationStore 自动化规则存取接口（由 repository.AutomationRepository 实现）
type AutomationStore interface {
	ListAutomations(ctx context.Context) ([]models.Automation, error)
	CreateAutomation(ctx context.Context, automation *models.Automation) (int64, error)
	ToggleAutomation(ctx context.Context, id int64) (int64, error)
	DeleteAutomation(ctx context.Context, id int64) (int64, error)
}

// AutomationHandler 自动化规则管理 Handler
type AutomationHandler struct {
	automations AutomationStore
	logger      *zap.Logger
}

// NewAutomationHandler 创建自动化规则 Handler
func NewAutomationHandler(automations AutomationStore, logger *zap.Logger) *AutomationHandler {
	return &AutomationHandler{
		automations: automations,
		logger:      logger,
	}
}

// ServeHTTP 实现 http.Handler 接口
func (h *AutomationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// 路由分发
	if r.URL.Path == "/api/automations" {
		switch r.Method {
		case http.MethodGet:
			h.ListAutomations(w, r)
		case http.MethodPost:
			h.CreateAutomation(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/automations/")

	switch {
	case strings.HasSuffix(rest, "/toggle") && r.Method == http.MethodPut:
		h.ToggleAutomation(w, r, strings.TrimSuffix(rest, "/toggle"))
	case !strings.Contains(rest, "/") && rest != "" && r.Method == http.MethodDelete:
		h.DeleteAutomation(w, r, rest)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListAutomations 查询所有规则
func (h *AutomationHandler) ListAutomations(w http.ResponseWriter, r *http.Request) {
	automations, err := h.automations.ListAutomations(r.Context())
	if err != nil {
		h.logger.Error("ListAutomations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if automations == nil {
		automations = []models.Automation{}
	}

	writeJSON(w, http.StatusOK, automations)
}

// CreateAutomation 创建规则
func (h *AutomationHandler) CreateAutomation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string   `json:"name"`
		DeviceID   string   `json:"device_id"`
		SensorType string   `json:"sensor_type"`
		Condition  string   `json:"condition"`
		Threshold  *float64 `json:"threshold"`
		Action     string   `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.DeviceID == "" || req.SensorType == "" ||
		req.Condition == "" || req.Threshold == nil || req.Action == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	automation := &models.Automation{
		Name:       req.Name,
		DeviceID:   req.DeviceID,
		SensorType: req.SensorType,
		Condition:  req.Condition,
		Threshold:  *req.Threshold,
		Action:     req.Action,
	}

	id, err := h.automations.CreateAutomation(r.Context(), automation)
	if err != nil {
		h.logger.Error("CreateAutomation failed", zap.String("name", req.Name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":          id,
		"name":        req.Name,
		"device_id":   req.DeviceID,
		"sensor_type": req.SensorType,
		"condition":   req.Condition,
		"threshold":   *req.Threshold,
		"action":      req.Action,
	})
}

// ToggleAutomation 翻转规则启用状态
func (h *AutomationHandler) ToggleAutomation(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid automation id")
		return
	}

	changes, err := h.automations.ToggleAutomation(r.Context(), id)
	if err != nil {
		h.logger.Error("ToggleAutomation failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Automation toggled",
		"changes": changes,
	})
}

// DeleteAutomation 删除规则
func (h *AutomationHandler) DeleteAutomation(w http.ResponseWriter, r *http.Request, idStr string) {
	id, ok := parseID(idStr)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid automation id")
		return
	}

	changes, err := h.automations.DeleteAutomation(r.Context(), id)
	if err != nil {
		h.logger.Error("DeleteAutomation failed", zap.Int64("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Automation deleted",
		"changes": changes,
	})
}
