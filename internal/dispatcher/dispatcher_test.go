package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type telemetryCall struct {
	deviceID string
	fields   map[string]float64
}

type statusCall struct {
	deviceID string
	status   string
}

type fakeIngestor struct {
	telemetry []telemetryCall
	statuses  []statusCall
}

func (f *fakeIngestor) IngestTelemetry(_ context.Context, deviceID string, fields map[string]float64) {
	f.telemetry = append(f.telemetry, telemetryCall{deviceID: deviceID, fields: fields})
}

func (f *fakeIngestor) IngestStatus(_ context.Context, deviceID, status string) {
	f.statuses = append(f.statuses, statusCall{deviceID: deviceID, status: status})
}

func setupDispatcher() (*fakeIngestor, *Dispatcher) {
	ingestor := &fakeIngestor{}
	d := NewDispatcher("iot-funcionando", ingestor, zap.NewNop())
	return ingestor, d
}

func TestHandle_TelemetryMessage(t *testing.T) {
	ingestor, d := setupDispatcher()

	err := d.Handle(context.Background(), "iot-funcionando/dev1/data",
		[]byte(`{"temperature": 31.5, "humidity": 55}`))

	require.NoError(t, err)
	require.Len(t, ingestor.telemetry, 1)
	assert.Equal(t, "dev1", ingestor.telemetry[0].deviceID)
	assert.Equal(t, 31.5, ingestor.telemetry[0].fields["temperature"])
	assert.Equal(t, 55.0, ingestor.telemetry[0].fields["humidity"])
	assert.Empty(t, ingestor.statuses)
}

func TestHandle_StatusMessage(t *testing.T) {
	ingestor, d := setupDispatcher()

	err := d.Handle(context.Background(), "iot-funcionando/dev1/status", []byte("online"))

	require.NoError(t, err)
	require.Len(t, ingestor.statuses, 1)
	assert.Equal(t, "dev1", ingestor.statuses[0].deviceID)
	assert.Equal(t, "online", ingestor.statuses[0].status)
	assert.Empty(t, ingestor.telemetry)
}

func TestHandle_UnknownKindIgnored(t *testing.T) {
	ingestor, d := setupDispatcher()

	// kind 段不是 data/status：静默忽略，不算错误
	err := d.Handle(context.Background(), "iot-funcionando/dev1/firmware", []byte("v2"))

	require.NoError(t, err)
	assert.Empty(t, ingestor.telemetry)
	assert.Empty(t, ingestor.statuses)
}

func TestHandle_WrongNamespaceDropped(t *testing.T) {
	ingestor, d := setupDispatcher()

	err := d.Handle(context.Background(), "other-namespace/dev1/data",
		[]byte(`{"temperature": 20}`))

	require.NoError(t, err)
	assert.Empty(t, ingestor.telemetry)
}

func TestHandle_MalformedTopicDropped(t *testing.T) {
	ingestor, d := setupDispatcher()

	for _, topic := range []string{
		"iot-funcionando/data",
		"iot-funcionando/dev1/data/extra",
		"iot-funcionando//data",
		"",
	} {
		err := d.Handle(context.Background(), topic, []byte(`{"temperature": 20}`))
		require.NoError(t, err, "topic %q", topic)
	}

	assert.Empty(t, ingestor.telemetry)
	assert.Empty(t, ingestor.statuses)
}

func TestHandle_MalformedPayloadDropped(t *testing.T) {
	ingestor, d := setupDispatcher()

	err := d.Handle(context.Background(), "iot-funcionando/dev1/data", []byte("not-json"))

	require.NoError(t, err)
	assert.Empty(t, ingestor.telemetry)
}

func TestHandle_NonNumericFieldDropped(t *testing.T) {
	ingestor, d := setupDispatcher()

	err := d.Handle(context.Background(), "iot-funcionando/dev1/data",
		[]byte(`{"temperature": "hot"}`))

	require.NoError(t, err)
	assert.Empty(t, ingestor.telemetry)
}

func TestHandle_MalformedPayloadDoesNotAffectNextMessage(t *testing.T) {
	ingestor, d := setupDispatcher()

	err := d.Handle(context.Background(), "iot-funcionando/dev1/data", []byte("{broken"))
	require.NoError(t, err)

	err = d.Handle(context.Background(), "iot-funcionando/dev2/data",
		[]byte(`{"temperature": 22.5}`))
	require.NoError(t, err)

	require.Len(t, ingestor.telemetry, 1)
	assert.Equal(t, "dev2", ingestor.telemetry[0].deviceID)
}
