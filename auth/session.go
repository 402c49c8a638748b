package auth

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// CurrentSession resolves the browser's token pair to a session. It returns
// (nil, nil) when there is no usable session and an error only when the
// lookup itself failed. An expired access token is refreshed once; the
// returned session then carries the new pair.
func (s *Service) CurrentSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	if accessToken == "" && refreshToken == "" {
		return nil, nil
	}
	if accessToken == "" {
		return s.refresh(ctx, refreshToken)
	}

	if s.verifier != nil {
		claims, err := s.verifier.Verify(ctx, accessToken)
		switch {
		case err == nil:
			return &identity.Session{
				AccessToken:  accessToken,
				RefreshToken: refreshToken,
				ExpiresAt:    claims.Expiry(),
				User:         claims.Identity(),
			}, nil
		case errs.Is(err, errs.ErrTokenExpired):
			if refreshToken == "" {
				return nil, nil
			}
			return s.refresh(ctx, refreshToken)
		default:
			return nil, errs.Wrapf(err, "[auth CurrentSession] verify")
		}
	}

	user, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		if !identity.IsRejection(err) {
			return nil, errs.Wrapf(err, "[auth CurrentSession] get user")
		}
		if refreshToken == "" {
			return nil, nil
		}
		return s.refresh(ctx, refreshToken)
	}
	sess := &identity.Session{AccessToken: accessToken, RefreshToken: refreshToken, User: *user}
	if claims, err := identity.UnverifiedClaims(accessToken); err == nil {
		sess.ExpiresAt = claims.Expiry()
	}
	return sess, nil
}

// refresh collapses concurrent refreshes of the same token into one provider call.
func (s *Service) refresh(ctx context.Context, refreshToken string) (*identity.Session, error) {
	v, err, _ := s.refreshes.Do(refreshToken, func() (interface{}, error) {
		sess, err := s.provider.RefreshSession(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, identity.EventTokenRefreshed, sess.User.ID)
		return sess, nil
	})
	if err != nil {
		if identity.IsRejection(err) {
			log.Debug().Err(err).Str("flow", "refresh").Str("reason", rejectionReason(err)).Msg("refresh rejected")
			return nil, nil
		}
		return nil, errs.Wrapf(err, "[auth refresh]")
	}
	return v.(*identity.Session), nil
}

// Guard runs the admin guard for a browser token pair. The session is
// returned so the caller can persist a refreshed pair.
func (s *Service) Guard(ctx context.Context, accessToken, refreshToken string) (GuardOutcome, *identity.Session) {
	sess, err := s.CurrentSession(ctx, accessToken, refreshToken)
	if err != nil {
		log.Warn().Err(err).Str("flow", "admin_guard").Msg("session lookup failed")
	}
	outcome := AdminGuard(sess, err)
	s.metrics.GuardDecision(outcome.String())
	return outcome, sess
}
