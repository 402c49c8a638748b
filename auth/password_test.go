package auth_test

import (
	"testing"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/stretchr/testify/require"
)

func TestValidateNewPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		confirm  string
		field    string
		message  string
	}{
		{"too short", "short1!", "short1!", auth.FieldPassword, auth.MsgPasswordTooShort},
		{"empty", "", "", auth.FieldPassword, auth.MsgPasswordTooShort},
		{"no uppercase", "alllowercase1!", "alllowercase1!", auth.FieldPassword, auth.MsgPasswordComplexity},
		{"no lowercase", "ALLUPPER1!", "ALLUPPER1!", auth.FieldPassword, auth.MsgPasswordComplexity},
		{"no symbol", "NoSymbol123", "NoSymbol123", auth.FieldPassword, auth.MsgPasswordComplexity},
		{"no digit", "NoDigits!!", "NoDigits!!", auth.FieldPassword, auth.MsgPasswordComplexity},
		{"valid", "Valid1!ok", "Valid1!ok", "", ""},
		{"space counts as symbol", "Valid1 ok", "Valid1 ok", "", ""},
		{"non-ascii counts as symbol", "Akwaaba1é", "Akwaaba1é", "", ""},
		{"accented letters count once", "Ab1!éé", "Ab1!éé", auth.FieldPassword, auth.MsgPasswordTooShort},
		{"astral characters count twice", "Aa1!😀😀", "Aa1!😀😀", "", ""},
		{"one astral character is not enough", "Aa1!😀", "Aa1!😀", auth.FieldPassword, auth.MsgPasswordTooShort},
		{"mismatch reported after policy", "Str0ng!Pw", "Str0ng!Px", auth.FieldConfirmPassword, auth.MsgPasswordMismatch},
		{"weak and mismatched reports policy", "weakpassword", "different", auth.FieldPassword, auth.MsgPasswordComplexity},
		{"length before complexity", "abc", "xyz", auth.FieldPassword, auth.MsgPasswordTooShort},
		{"classes split across lines", "abcdefgh\nABC1", "abcdefgh\nABC1", auth.FieldPassword, auth.MsgPasswordComplexity},
		{"line break is the symbol", "Abcdefg1\nzz", "Abcdefg1\nzz", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidateNewPassword(tt.password, tt.confirm)
			if tt.message == "" {
				require.NoError(t, err)
				return
			}
			var ve *auth.ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, tt.field, ve.Field)
			require.Equal(t, tt.message, ve.Message)
			require.Equal(t, tt.message, auth.UserMessage(err))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	require.NoError(t, auth.ValidateEmail("user@example.com"))
	require.NoError(t, auth.ValidateEmail("no-such-user@example.org"))
	require.Error(t, auth.ValidateEmail("not-an-email"))
	require.Error(t, auth.ValidateEmail("Ama <ama@example.com>"))
	require.Error(t, auth.ValidateEmail(""))
}
