package auth

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

func TestRejectionReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"blocked", &identity.ProviderError{Status: 400, Code: "user_banned"}, "user_blocked"},
		{"verifier", &identity.ProviderError{Status: 400, Code: "bad_code_verifier"}, "code_verifier_mismatch"},
		{"used code", fmt.Errorf("exchange: %w", &identity.ProviderError{Status: 400, Code: "flow_state_not_found"}), "code_not_found"},
		{"used refresh token", &identity.ProviderError{Status: 400, Code: "refresh_token_not_found"}, "refresh_token_invalid"},
		{"signed out", &identity.ProviderError{Status: 403, Code: "session_not_found"}, "session_revoked"},
		{"credentials", &identity.ProviderError{Status: 400, Code: "invalid_credentials"}, "invalid_credentials"},
		{"expired", errs.Wrapf(errs.ErrTokenExpired, "verify"), "token_expired"},
		{"bad jwt", &identity.ProviderError{Status: 403, Code: "bad_jwt"}, "invalid_token"},
		{"transport", fmt.Errorf("dial tcp: refused"), "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, rejectionReason(tt.err))
		})
	}
}
