package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJaegerWithoutEndpoint(t *testing.T) {
	shutdown, err := InitJaeger("quantum-collab", "", zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitJaegerWithEndpoint(t *testing.T) {
	// the exporter connects lazily, so an unreachable collector is fine here
	shutdown, err := InitJaeger("quantum-collab", "http://127.0.0.1:1/api/traces", zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, shutdown)
}
