package auth

import (
	"strings"

	"github.com/jrsteele09/takemethere/identity"
)

const MinPasswordLength = 8

// Field-level messages shown next to the password inputs.
const (
	MsgPasswordTooShort   = "Password must be at least 8 characters."
	MsgPasswordComplexity = "Password must include uppercase, lowercase, a number, and a symbol."
	MsgPasswordMismatch   = "Passwords do not match."
)

const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
)

// ValidationError is a local input problem. It never reaches the provider.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidatePasswordStrength applies the length rule and then the complexity rule.
func ValidatePasswordStrength(password string) error {
	if identity.PasswordLength(password) < MinPasswordLength {
		return &ValidationError{Field: FieldPassword, Message: MsgPasswordTooShort}
	}
	if !meetsComplexity(password) {
		return &ValidationError{Field: FieldPassword, Message: MsgPasswordComplexity}
	}
	return nil
}

// ValidateNewPassword checks a new password and its confirmation. Rules run in
// order and only the first failure is reported.
func ValidateNewPassword(password, confirm string) error {
	if err := ValidatePasswordStrength(password); err != nil {
		return err
	}
	if password != confirm {
		return &ValidationError{Field: FieldConfirmPassword, Message: MsgPasswordMismatch}
	}
	return nil
}

// lineTerminators ends the region the complexity rule scans.
const lineTerminators = "\n\r\u2028\u2029"

// meetsComplexity requires an ASCII lowercase letter, uppercase letter and
// digit, plus one character outside [A-Za-z0-9], all found on the first line.
// The terminator that ends the first line counts as that character.
func meetsComplexity(password string) bool {
	line := password
	terminated := false
	if i := strings.IndexAny(password, lineTerminators); i >= 0 {
		line = password[:i]
		terminated = true
	}

	var lower, upper, digit, symbol bool
	for _, r := range line {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	return lower && upper && digit && (symbol || terminated)
}
