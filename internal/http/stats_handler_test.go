package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDeviceCounter struct {
	total     int
	online    int
	totalErr  error
	onlineErr error
}

func (f *fakeDeviceCounter) CountDevices(_ context.Context) (int, error) {
	return f.total, f.totalErr
}

func (f *fakeDeviceCounter) CountDevicesByStatus(_ context.Context, _ string) (int, error) {
	return f.online, f.onlineErr
}

type fakeReadingCounter struct {
	total int
	err   error
}

func (f *fakeReadingCounter) CountReadings(_ context.Context) (int, error) {
	return f.total, f.err
}

type fakeAutomationCounter struct {
	active int
	err    error
}

func (f *fakeAutomationCounter) CountActiveAutomations(_ context.Context) (int, error) {
	return f.active, f.err
}

type statsResponse struct {
	TotalDevices      int `json:"totalDevices"`
	OnlineDevices     int `json:"onlineDevices"`
	TotalReadings     int `json:"totalReadings"`
	ActiveAutomations int `json:"activeAutomations"`
}

func TestGetStats_OK(t *testing.T) {
	h := NewStatsHandler(
		&fakeDeviceCounter{total: 12, online: 8},
		&fakeReadingCounter{total: 3456},
		&fakeAutomationCounter{active: 4},
		zap.NewNop(),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 12, got.TotalDevices)
	assert.Equal(t, 8, got.OnlineDevices)
	assert.Equal(t, 3456, got.TotalReadings)
	assert.Equal(t, 4, got.ActiveAutomations)
}

func TestGetStats_PartialFailureReturnsRest(t *testing.T) {
	h := NewStatsHandler(
		&fakeDeviceCounter{total: 12, online: 8},
		&fakeReadingCounter{err: errors.New("query timeout")},
		&fakeAutomationCounter{active: 4},
		zap.NewNop(),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)

	// 单项失败记 0，整体仍返回 200
	require.Equal(t, http.StatusOK, rec.Code)

	var got statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 12, got.TotalDevices)
	assert.Equal(t, 0, got.TotalReadings)
	assert.Equal(t, 4, got.ActiveAutomations)
}

func TestGetStats_MethodNotAllowed(t *testing.T) {
	h := NewStatsHandler(
		&fakeDeviceCounter{},
		&fakeReadingCounter{},
		&fakeAutomationCounter{},
		zap.NewNop(),
	)

	req := httptest.NewRequest(http.MethodPost, "/api/stats", nil)
	rec := httptest.NewRecorder()
	h.GetStats(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
