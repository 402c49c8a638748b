package auth

import (
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// User-facing messages. Provider error text is never shown on these paths.
const (
	ResetAcknowledgement  = "If an account exists for that email, a password reset link has been sent."
	MsgLinkExpired        = "Unable to reset password. The link may have expired. Please request a new reset."
	MsgUnexpected         = "Something went wrong. Please try again."
	MsgInvalidCredentials = "Invalid email or password."
	MsgInvalidEmail       = "Please enter a valid email address."
	MsgSignUpFailed       = "We couldn't create an account with those details."
	MsgNotReady           = "Your reset link is still being verified. Please try again in a moment."
	MsgResetSuccess       = "Your password has been reset. Please sign in with your new password."
	MsgSignInRequired     = "Please sign in to continue."
)

// CredentialError is a failed sign-in. The login page uses it to reveal the
// reset form pre-filled with Email.
type CredentialError struct {
	Email     string
	Message   string
	ShowReset bool
	Err       error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return "sign in: " + e.Err.Error()
	}
	return "sign in: " + e.Message
}

func (e *CredentialError) Unwrap() error { return e.Err }

// FlowError carries the message to show for a failed step and the cause to log.
type FlowError struct {
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *FlowError) Unwrap() error { return e.Err }

// UserMessage picks the text to show for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errs.As(err, &ve) {
		return ve.Message
	}
	var ce *CredentialError
	if errs.As(err, &ce) {
		return ce.Message
	}
	var fe *FlowError
	if errs.As(err, &fe) {
		return fe.Message
	}
	return MsgUnexpected
}

// rejectionReason names a provider rejection for logs.
func rejectionReason(err error) string {
	switch {
	case errs.Is(err, errs.ErrUserBlocked):
		return "user_blocked"
	case errs.Is(err, errs.ErrInvalidCodeVerifier):
		return "code_verifier_mismatch"
	case errs.Is(err, errs.ErrInvalidAuthorizationCode):
		return "code_not_found"
	case errs.Is(err, errs.ErrInvalidRefreshToken):
		return "refresh_token_invalid"
	case errs.Is(err, errs.ErrSessionRevoked):
		return "session_revoked"
	case errs.Is(err, errs.ErrInvalidCredentials):
		return "invalid_credentials"
	case errs.Is(err, errs.ErrTokenExpired):
		return "token_expired"
	case errs.Is(err, errs.ErrInvalidToken):
		return "invalid_token"
	}
	return "other"
}
