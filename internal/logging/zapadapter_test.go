package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestZapLoggerForwardsEntries(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(DebugLevel, &buf))

	zl.Debug("line search iteration",
		zap.Int("iteration", 3),
		zap.Float64("trial", 0.5),
		zap.Bool("bracketed", true),
		zap.String("stage", "one"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "line search iteration", entry["message"])
	assert.Equal(t, float64(3), entry["iteration"])
	assert.Equal(t, 0.5, entry["trial"])
	assert.Equal(t, true, entry["bracketed"])
	assert.Equal(t, "one", entry["stage"])
}

func TestZapLoggerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf))

	zl.Debug("suppressed")
	assert.Zero(t, buf.Len())

	zl.Info("emitted")
	assert.NotZero(t, buf.Len())
}

func TestZapLoggerCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	zl := NewZapLogger(New(InfoLevel, &buf)).With(zap.String("component", "solver"))

	zl.Info("optimization step")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "solver", entry["component"])
}
