package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FormatSelection(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   slog.Handler
	}{
		{name: "json", format: "json", want: &slog.JSONHandler{}},
		{name: "text", format: "text", want: &slog.TextHandler{}},
		{name: "unknown falls back to text", format: "logfmt", want: &slog.TextHandler{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(0, tt.format)
			require.NotNil(t, l)
			assert.IsType(t, tt.want, l.Handler())
		})
	}
}

func TestNew_LevelThreshold(t *testing.T) {
	l := New(int(slog.LevelWarn), "text")

	ctx := context.Background()
	assert.False(t, l.Enabled(ctx, slog.LevelInfo))
	assert.True(t, l.Enabled(ctx, slog.LevelWarn))
}
