package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"wisefido-iot-hub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type statusUpdate struct {
	deviceID string
	status   string
	lastSeen time.Time
}

type fakeDeviceWriter struct {
	updates []statusUpdate
	err     error
}

func (f *fakeDeviceWriter) UpsertStatus(_ context.Context, deviceID, status string, lastSeen time.Time) error {
	f.updates = append(f.updates, statusUpdate{deviceID: deviceID, status: status, lastSeen: lastSeen})
	return f.err
}

type appendedReading struct {
	deviceID   string
	sensorType string
	value      float64
	unit       string
}

type fakeReadingWriter struct {
	readings   []appendedReading
	failSensor string // 该传感器的写入返回错误
}

func (f *fakeReadingWriter) AppendReading(_ context.Context, deviceID, sensorType string, value float64, unit string, _ time.Time) error {
	if sensorType == f.failSensor {
		return errors.New("insert failed")
	}
	f.readings = append(f.readings, appendedReading{
		deviceID:   deviceID,
		sensorType: sensorType,
		value:      value,
		unit:       unit,
	})
	return nil
}

type fakeLatestWriter struct {
	entries []appendedReading
	err     error
}

func (f *fakeLatestWriter) SetLatest(_ context.Context, deviceID, sensorType string, value float64, unit string, _ time.Time) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, appendedReading{
		deviceID:   deviceID,
		sensorType: sensorType,
		value:      value,
		unit:       unit,
	})
	return nil
}

type evalCall struct {
	deviceID string
	fields   map[string]float64
}

type fakeEvaluator struct {
	calls []evalCall
}

func (f *fakeEvaluator) Evaluate(_ context.Context, deviceID string, fields map[string]float64) {
	f.calls = append(f.calls, evalCall{deviceID: deviceID, fields: fields})
}

func setupProcessor() (*fakeDeviceWriter, *fakeReadingWriter, *fakeLatestWriter, *fakeEvaluator, *Processor) {
	devices := &fakeDeviceWriter{}
	readings := &fakeReadingWriter{}
	latest := &fakeLatestWriter{}
	engine := &fakeEvaluator{}
	p := NewProcessor(devices, readings, latest, engine, zap.NewNop())
	return devices, readings, latest, engine, p
}

func findReading(readings []appendedReading, sensorType string) *appendedReading {
	for i := range readings {
		if readings[i].sensorType == sensorType {
			return &readings[i]
		}
	}
	return nil
}

func TestIngestTelemetry_StoresKnownSensorsWithUnits(t *testing.T) {
	devices, readings, _, _, p := setupProcessor()

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{
		"temperature": 31.5,
		"humidity":    55,
		"pressure":    1013.2,
		"light":       420,
	})

	// 设备置为 online
	require.Len(t, devices.updates, 1)
	assert.Equal(t, "dev1", devices.updates[0].deviceID)
	assert.Equal(t, models.DeviceStatusOnline, devices.updates[0].status)
	assert.False(t, devices.updates[0].lastSeen.IsZero())

	// 四种内置传感器各写入一条，单位固定
	require.Len(t, readings.readings, 4)
	for _, expected := range []appendedReading{
		{deviceID: "dev1", sensorType: "temperature", value: 31.5, unit: "°C"},
		{deviceID: "dev1", sensorType: "humidity", value: 55, unit: "%"},
		{deviceID: "dev1", sensorType: "pressure", value: 1013.2, unit: "hPa"},
		{deviceID: "dev1", sensorType: "light", value: 420, unit: "lux"},
	} {
		got := findReading(readings.readings, expected.sensorType)
		require.NotNil(t, got, "missing reading for %s", expected.sensorType)
		assert.Equal(t, expected, *got)
	}
}

func TestIngestTelemetry_UnknownSensorTypeIgnored(t *testing.T) {
	_, readings, _, engine, p := setupProcessor()

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{
		"temperature": 22,
		"co2":         600,
	})

	// co2 不落库
	require.Len(t, readings.readings, 1)
	assert.Equal(t, "temperature", readings.readings[0].sensorType)

	// 但规则引擎收到完整字段集（规则可能引用 co2）
	require.Len(t, engine.calls, 1)
	assert.Equal(t, 600.0, engine.calls[0].fields["co2"])
	assert.Equal(t, 22.0, engine.calls[0].fields["temperature"])
}

func TestIngestTelemetry_UnknownFieldsOnly(t *testing.T) {
	devices, readings, _, engine, p := setupProcessor()

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{"co2": 600})

	assert.Empty(t, readings.readings)
	require.Len(t, devices.updates, 1)
	require.Len(t, engine.calls, 1)
}

func TestIngestTelemetry_AppendFailureDoesNotBlockOtherFields(t *testing.T) {
	_, readings, _, engine, p := setupProcessor()
	readings.failSensor = "temperature"

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{
		"temperature": 31.5,
		"humidity":    55,
	})

	// temperature 写入失败，humidity 正常写入，评估照常执行
	require.Len(t, readings.readings, 1)
	assert.Equal(t, "humidity", readings.readings[0].sensorType)
	require.Len(t, engine.calls, 1)
}

func TestIngestTelemetry_UpsertFailureDoesNotBlockPipeline(t *testing.T) {
	devices, readings, _, engine, p := setupProcessor()
	devices.err = errors.New("db down")

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{"temperature": 20})

	require.Len(t, readings.readings, 1)
	require.Len(t, engine.calls, 1)
}

func TestIngestTelemetry_CacheFailureTolerated(t *testing.T) {
	_, readings, latest, engine, p := setupProcessor()
	latest.err = errors.New("redis down")

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{"temperature": 20})

	require.Len(t, readings.readings, 1)
	assert.Empty(t, latest.entries)
	require.Len(t, engine.calls, 1)
}

func TestIngestTelemetry_UpdatesLatestCache(t *testing.T) {
	_, _, latest, _, p := setupProcessor()

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{"humidity": 55})

	require.Len(t, latest.entries, 1)
	assert.Equal(t, appendedReading{
		deviceID:   "dev1",
		sensorType: "humidity",
		value:      55,
		unit:       "%",
	}, latest.entries[0])
}

func TestIngestTelemetry_FailedAppendSkipsCache(t *testing.T) {
	_, readings, latest, _, p := setupProcessor()
	readings.failSensor = "temperature"

	p.IngestTelemetry(context.Background(), "dev1", map[string]float64{"temperature": 20})

	assert.Empty(t, latest.entries)
}

func TestIngestStatus_StoresRawStatus(t *testing.T) {
	devices, readings, _, engine, p := setupProcessor()

	p.IngestStatus(context.Background(), "dev1", "maintenance")

	require.Len(t, devices.updates, 1)
	assert.Equal(t, "dev1", devices.updates[0].deviceID)
	assert.Equal(t, "maintenance", devices.updates[0].status)
	assert.False(t, devices.updates[0].lastSeen.IsZero())

	// 状态消息不写读数也不触发评估
	assert.Empty(t, readings.readings)
	assert.Empty(t, engine.calls)
}

func TestIngestStatus_UpsertFailureLoggedOnly(t *testing.T) {
	devices, _, _, _, p := setupProcessor()
	devices.err = errors.New("db down")

	// 不应 panic，也没有返回值可传播
	p.IngestStatus(context.Background(), "dev1", "offline")

	require.Len(t, devices.updates, 1)
}
