package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLogLevel(input), input)
	}
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "a***@example.com", MaskEmail("alice@example.com"))
	assert.Equal(t, "***", MaskEmail("@example.com"))
	assert.Equal(t, "***", MaskEmail("not-an-email"))
}

func TestWithFieldsReturnsNewLogger(t *testing.T) {
	base := NewNop()
	child := base.WithFields(map[string]interface{}{"op": "submit"})
	assert.NotSame(t, base, child)
	assert.NotNil(t, child.WithError(assert.AnError))
}
