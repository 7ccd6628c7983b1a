package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithSource(t *testing.T) {
	assert.Nil(t, WithSource(nil, "store-a"))

	core, logs := observer.New(zapcore.InfoLevel)
	WithSource(zap.New(core), " store-a ").Info("polled")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "store-a", entries[0].ContextMap()["source"])
	}
}
