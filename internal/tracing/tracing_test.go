package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledProviderIsNoop(t *testing.T) {
	provider, err := NewProvider(Config{Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.IsEnabled())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Start(context.Background()))
	assert.NoError(t, provider.Stop(context.Background()))
}

func TestEnabledRequiresEndpoint(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")
}

func TestTLSConfiguration(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		expectError bool
	}{
		{
			name: "insecure skip verify",
			cfg: Config{
				Enabled:     true,
				Endpoint:    "localhost:4317",
				TLSInsecure: true,
			},
			expectError: false,
		},
		{
			name: "missing CA certificate file",
			cfg: Config{
				Enabled:   true,
				Endpoint:  "localhost:4317",
				TLSCAPath: "/path/to/ca.crt",
			},
			expectError: true,
		},
		{
			name: "no TLS",
			cfg: Config{
				Enabled:  true,
				Endpoint: "localhost:4317",
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.cfg)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, provider.IsEnabled())
			_ = provider.Stop(context.Background())
		})
	}
}
