package logging_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kava-labs/kava-batch-service/logging"
)

func TestUnitTestNewReturnsErrorForUnknownLevel(t *testing.T) {
	_, err := logging.New("VERBOSE")
	require.Error(t, err)
}

func TestUnitTestNewWithWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer

	logger, err := logging.NewWithWriter("ERROR", &buf)
	require.NoError(t, err)

	logger.Debug().Msg("should be dropped")
	require.Zero(t, buf.Len())

	logger.Error().Str("component", "test").Msg("should be written")
	require.Contains(t, buf.String(), `"component":"test"`)
	require.Contains(t, buf.String(), "should be written")
}

func TestUnitTestTraceLevelIsSupported(t *testing.T) {
	var buf bytes.Buffer

	logger, err := logging.NewWithWriter("TRACE", &buf)
	require.NoError(t, err)

	logger.Trace().Msg("trace message")
	require.Contains(t, buf.String(), "trace message")
}
