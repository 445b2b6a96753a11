package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestNewDefaultsOutput(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, logger.Logger)
	assert.False(t, logger.Verbose())
}

func TestLifecycleLevel(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantLevel zapcore.Level
	}{
		{name: "quiet bridge", verbose: false, wantLevel: zapcore.DebugLevel},
		{name: "debug bridge", verbose: true, wantLevel: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			logger := Wrap(zap.New(core), tt.verbose)

			logger.Socket("preview", "sock_1").Lifecycle("socket registered")

			entries := logs.All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)
			fields := entries[0].ContextMap()
			assert.Equal(t, "preview", fields["route"])
			assert.Equal(t, "sock_1", fields["socket"])
		})
	}
}
