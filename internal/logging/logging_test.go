package logging_test

import (
	"bytes"
	"testing"

	"github.com/manishahirrao/postpilot/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
	require.Equal(t, zerolog.WarnLevel, logging.ParseLevel("warning"))
	require.Equal(t, zerolog.ErrorLevel, logging.ParseLevel("error"))
	require.Equal(t, zerolog.TraceLevel, logging.ParseLevel("trace"))
	require.Equal(t, zerolog.Disabled, logging.ParseLevel("disabled"))
	require.Equal(t, zerolog.InfoLevel, logging.ParseLevel("chatty"))
	require.Equal(t, zerolog.InfoLevel, logging.ParseLevel(""))
}

func TestSetupJSON(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	logger := logging.SetupWithWriter("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("component", "csrf").Msg("shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"component":"csrf"`)
	require.Contains(t, buf.String(), `"message":"shown"`)
}
