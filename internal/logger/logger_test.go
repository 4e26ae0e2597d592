package logger_test

import (
	"bytes"
	"io"
	"testing"

	"codeberg.org/mutker/sysfeed/internal/errors"
	"codeberg.org/mutker/sysfeed/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want logger.LogLevel
	}{
		{"debug", logger.DebugLevel},
		{"INFO", logger.InfoLevel},
		{"warning", logger.WarnLevel},
		{"warn", logger.WarnLevel},
		{" error ", logger.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logger.ParseLevel(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevelInvalid(t *testing.T) {
	_, err := logger.ParseLevel("verbose")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInvalidLogLevel))
}

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		debug   bool
		verbose bool
		want    logger.LogLevel
	}{
		{"file level only", "error", false, false, logger.ErrorLevel},
		{"debug flag wins", "error", true, false, logger.DebugLevel},
		{"verbose lowers warn", "warn", false, true, logger.InfoLevel},
		{"verbose keeps debug", "debug", false, true, logger.DebugLevel},
		{"debug flag over reloaded info", "info", true, true, logger.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logger.ResolveLevel(tt.level, tt.debug, tt.verbose)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveLevelInvalidNameKeepsFlags(t *testing.T) {
	got, err := logger.ResolveLevel("loud", true, false)
	require.Error(t, err)
	assert.Equal(t, logger.DebugLevel, got)

	got, err = logger.ResolveLevel("loud", false, false)
	require.Error(t, err)
	assert.Equal(t, logger.WarnLevel, got)
}

func TestErrorWithCodeFields(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.DebugLevel)

	err := errors.New().New(errors.ErrSpawnFailed)
	logger.ErrorWithContext(err, "manager", "create").Msg("spawn")

	out := buf.String()
	assert.Contains(t, out, `"error_code":"spawn_failed"`)
	assert.Contains(t, out, `"component":"manager"`)
	assert.Contains(t, out, `"operation":"create"`)
}

func TestErrorWithCodeKeepsCause(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.InfoLevel)

	err := errors.New().Wrap(errors.ErrRefreshFailed, io.ErrUnexpectedEOF)
	logger.ErrorWithCode(err).Str("fingerprint", "fp").Msg("refresh")

	out := buf.String()
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"error_code":"refresh_failed"`)
	assert.Contains(t, out, `"error":"unexpected EOF"`)
	assert.Contains(t, out, `"fingerprint":"fp"`)
}

func TestScopedLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, logger.InfoLevel)

	base := logger.Get().With("component", "transport")
	scoped := base.With("subscriber", "s1")

	scoped.Info().Msg("connected")
	base.Info().Msg("started")
	scoped.Debug().Msg("filtered")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"component":"transport"`)
	assert.Contains(t, string(lines[0]), `"subscriber":"s1"`)
	assert.Contains(t, string(lines[1]), `"component":"transport"`)
	assert.NotContains(t, string(lines[1]), `"subscriber"`)
}
