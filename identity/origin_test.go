package identity_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/takemethere/identity"
)

func TestOriginAllowList(t *testing.T) {
	l := identity.NewOriginAllowList("https://takemethereghana.com/", "https://Admin.Example.com", "not a url", "")

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"configured origin with path", "https://takemethereghana.com/reset-password", true},
		{"host is case insensitive", "https://admin.example.com/x", true},
		{"scheme must match", "http://takemethereghana.com/reset-password", false},
		{"other host", "https://evil.example/reset-password", false},
		{"lookalike host", "https://takemethereghana.com.evil.example/", false},
		{"localhost", "http://localhost:8080/reset-password", true},
		{"loopback ip", "http://127.0.0.1:51234/reset-password", true},
		{"ipv6 loopback", "http://[::1]:8080/", true},
		{"relative", "/reset-password", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, l.Allows(tt.raw))
		})
	}
}

func TestOriginOf(t *testing.T) {
	require.Equal(t, "https://takemethereghana.com", identity.OriginOf("HTTPS://TakeMeThereGhana.com/a?b=c#d"))
	require.Empty(t, identity.OriginOf("takemethereghana.com"))
}
