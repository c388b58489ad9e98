package logger

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLevels(t *testing.T) {
	// Not parallel: Setup mutates the process default logger.
	cases := []struct {
		configured string
		enabled    slog.Level
		disabled   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"WARN", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"", slog.LevelInfo, slog.LevelDebug},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	for _, tc := range cases {
		log, err := Setup(LoggerConfig{Level: tc.configured})
		require.NoError(t, err, "level %q", tc.configured)
		require.NotNil(t, log, "level %q", tc.configured)

		assert.True(t, log.Enabled(context.Background(), tc.enabled),
			"level %q should enable %v", tc.configured, tc.enabled)
		assert.False(t, log.Enabled(context.Background(), tc.disabled),
			"level %q should not enable %v", tc.configured, tc.disabled)
	}
}

func TestSetupSetsDefault(t *testing.T) {
	log, err := Setup(LoggerConfig{Level: "warn"})
	require.NoError(t, err)
	assert.Equal(t, log, slog.Default())
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Equal(t, slog.Default(), FromContext(ctx))

	scoped := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx = WithLogger(ctx, scoped)
	assert.Equal(t, scoped, FromContext(ctx))
}

func TestFromContextOrDefault(t *testing.T) {
	t.Parallel()

	fallback := slog.New(slog.NewTextHandler(os.Stderr, nil))
	assert.Equal(t, fallback, FromContextOrDefault(context.Background(), fallback))
	assert.Equal(t, slog.Default(), FromContextOrDefault(context.Background(), nil))

	scoped := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx := WithLogger(context.Background(), scoped)
	assert.Equal(t, scoped, FromContextOrDefault(ctx, fallback))
}
