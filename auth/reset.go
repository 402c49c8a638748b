package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strings"

	"github.com/rs/zerolog/log"
)

const resetCooldownPrefix = "reset-cooldown:"

// ResolveOrigin picks the public origin for links we hand out: the configured
// site URL, then the origin serving the request, then the fallback origin.
func ResolveOrigin(siteURL, requestOrigin, fallbackOrigin string) string {
	for _, candidate := range []string{siteURL, requestOrigin, fallbackOrigin} {
		if c := strings.TrimRight(strings.TrimSpace(candidate), "/"); c != "" {
			return c
		}
	}
	return ""
}

// PublicOrigin resolves the origin for links handed out while serving a
// request. The request's own origin only counts when it is allowed; a forged
// Host falls through to the fallback.
func (s *Service) PublicOrigin(requestOrigin string) string {
	if requestOrigin != "" && !s.origins.Allows(requestOrigin) {
		log.Warn().Str("request_origin", requestOrigin).Msg("ignoring request origin that is not allowed")
		requestOrigin = ""
	}
	return ResolveOrigin(s.siteURL, requestOrigin, s.fallbackOrigin)
}

// ValidateEmail accepts a bare address only.
func ValidateEmail(emailAddr string) error {
	addr, err := mail.ParseAddress(emailAddr)
	if err != nil || addr.Address != emailAddr {
		return &ValidationError{Field: FieldEmail, Message: MsgInvalidEmail}
	}
	return nil
}

// RequestPasswordReset asks the provider to mail a reset link and returns the
// acknowledgement. Apart from a malformed address, every input gets the same
// answer: the provider call runs in the background and its outcome is only
// logged.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr, requestOrigin string) (string, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if err := ValidateEmail(emailAddr); err != nil {
		return "", err
	}
	emailHash := hashEmail(emailAddr)

	if s.cache != nil && s.resetCooldown > 0 {
		fresh, err := s.cache.SetNX(ctx, resetCooldownPrefix+emailHash, []byte("1"), s.resetCooldown)
		if err != nil {
			log.Warn().Err(err).Str("flow", "reset_request").Msg("cooldown check failed")
		} else if !fresh {
			log.Debug().Str("flow", "reset_request").Str("email_hash", emailHash).Msg("reset request suppressed by cooldown")
			s.metrics.ResetRequest("suppressed")
			return ResetAcknowledgement, nil
		}
	}

	redirectTo := s.PublicOrigin(requestOrigin) + PathResetPassword

	s.dispatches.Add(1)
	go func() {
		defer s.dispatches.Done()

		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
		defer cancel()

		if err := s.provider.ResetPasswordForEmail(dctx, emailAddr, redirectTo); err != nil {
			log.Err(err).Str("flow", "reset_request").Str("email_hash", emailHash).Msg("reset email dispatch failed")
			s.metrics.ResetRequest("failed")
			return
		}
		log.Info().Str("flow", "reset_request").Str("email_hash", emailHash).Str("redirect_to", redirectTo).Msg("reset email dispatched")
		s.metrics.ResetRequest("dispatched")
	}()

	return ResetAcknowledgement, nil
}

// hashEmail identifies an address in logs and cache keys without storing it.
func hashEmail(emailAddr string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(emailAddr)))
	return hex.EncodeToString(sum[:8])
}
