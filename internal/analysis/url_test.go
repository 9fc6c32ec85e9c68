package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare domain", "example.com", "https://example.com"},
		{"domain with path", "example.com/docs?q=1", "https://example.com/docs?q=1"},
		{"https untouched", "https://Example.com/A", "https://Example.com/A"},
		{"http untouched", "http://example.com", "http://example.com"},
		{"surrounding spaces", "  example.com  ", "https://example.com"},
		{"other scheme gains prefix", "ftp://example.com", "https://ftp://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeURLEmpty(t *testing.T) {
	t.Parallel()

	_, err := NormalizeURL("   ")
	require.ErrorIs(t, err, ErrEmptyURL)
}

func TestHostname(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://example.com", "example.com"},
		{"https://Example.com:8443/path", "example.com"},
		{"http://user:pw@example.com/x", "example.com"},
		{"https://127.0.0.1:9000", "127.0.0.1"},
	}
	for _, tt := range tests {
		got, err := Hostname(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	_, err := Hostname("https://")
	require.Error(t, err)
}
