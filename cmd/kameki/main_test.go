package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantLevel slog.Level
	}{
		{
			name:      "debug mode enabled",
			debugMode: true,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "debug mode disabled",
			debugMode: false,
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(tt.debugMode)
			// Verify the logger was set (no panic)
			logger := slog.Default()
			assert.NotNil(t, logger)
			assert.Equal(t, tt.wantLevel <= slog.LevelDebug, logger.Enabled(nil, slog.LevelDebug))
		})
	}
}

func TestNewSyncCommand(t *testing.T) {
	cmd := newSyncCommand()

	assert.Equal(t, "sync", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.NotNil(t, cmd.Flags().Lookup("full"))
	assert.NotNil(t, cmd.Flags().Lookup("quick"))
}

func TestNewWatchCommand(t *testing.T) {
	cmd := newWatchCommand()

	assert.Equal(t, "watch", cmd.Use)
	assert.NotNil(t, cmd.RunE)
	assert.Equal(t, "5m0s", cmd.Flags().Lookup("interval").DefValue)
}
