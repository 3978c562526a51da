package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, false)
	log.Debug("hidden")
	log.Info("dialing", zap.String("url", "http://127.0.0.1:8545"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "dialing")
	assert.Contains(t, buf.String(), "http://127.0.0.1:8545")

	buf.Reset()
	New(&buf, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
