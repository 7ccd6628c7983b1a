package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT id FROM products":                      "SELECT",
		"  insert into price_history (id) values (?)": "INSERT",
		"WITH x AS (SELECT 1) UPDATE products SET":     "SELECT",
		"":                                             "UNKNOWN",
		"VACUUM":                                       "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewGormLogger(zap.New(core), GormLoggerConfig{
		Level:                gormlogger.Warn,
		SlowThreshold:        10 * time.Millisecond,
		IgnoreRecordNotFound: true,
	})

	sql := func() (string, int64) { return "SELECT price FROM products WHERE name = ?", 1 }

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Equal(t, 0, logs.Len(), "fast queries are not logged at warn level")

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Equal(t, 1, logs.FilterMessage("gorm.query").FilterField(zap.String("operation", "SELECT")).Len())

	l.Trace(context.Background(), time.Now(), sql, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 1, logs.Len(), "record not found is ignored")

	l.Trace(context.Background(), time.Now(), sql, errors.New("disk I/O error"))
	assert.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[1].Level)
}
