package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLoggerLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	SetupLogger("warn", "text")
	require.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	require.True(t, slog.Default().Enabled(context.Background(), slog.LevelWarn))

	SetupLogger("bogus", "json")
	require.True(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
	require.False(t, slog.Default().Enabled(context.Background(), slog.LevelDebug))
}
