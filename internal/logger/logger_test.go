package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		env, level string
		want       zapcore.Level
	}{
		{"production", "warn", zapcore.WarnLevel},
		{"development", "debug", zapcore.DebugLevel},
		{"", "loud", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		log, err := New(tt.env, tt.level)
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(tt.want), tt.level)
		assert.False(t, log.Core().Enabled(tt.want-1), tt.level)
	}
}
