package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxReturnsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithLogger(context.Background(), logger.With().Str(FieldRequestID, "req-1").Logger())

	// Level methods must chain directly on the Ctx result.
	Ctx(ctx).Warn().Str(FieldUserID, "u1").Msg("stale presence event")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"user_id":"u1"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestCtxFallsBackToGlobal(t *testing.T) {
	l := Ctx(context.Background())
	require.NotNil(t, l)
	assert.Same(t, L(), l)

	// Chaining on the global must compile and not panic even before Init.
	L().Debug().Msg("startup probe")
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	logger := New(Config{Level: "verbose"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewAppliesConfiguredLevel(t *testing.T) {
	logger := New(Config{Level: "error"})
	assert.Equal(t, zerolog.ErrorLevel, logger.GetLevel())
}
