package auth

import (
	"context"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/identity"
)

// RecoveryState is where a password-reset visit is in its lifecycle.
type RecoveryState int

const (
	RecoveryAnonymous RecoveryState = iota
	RecoveryExtracting
	RecoveryExchanging
	RecoveryReady
	RecoverySubmitting
	RecoveryUpdated
	RecoveryFailed
)

func (s RecoveryState) String() string {
	switch s {
	case RecoveryAnonymous:
		return "anonymous"
	case RecoveryExtracting:
		return "extracting"
	case RecoveryExchanging:
		return "exchanging"
	case RecoveryReady:
		return "ready"
	case RecoverySubmitting:
		return "submitting"
	case RecoveryUpdated:
		return "updated"
	case RecoveryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionOrigin says which single source supplied the recovery session.
type SessionOrigin int

const (
	OriginNone SessionOrigin = iota
	OriginTokenPair
	OriginExistingSession
)

// Recovery is one password-reset visit.
type Recovery struct {
	State     RecoveryState
	Session   *identity.Session
	Origin    SessionOrigin
	LinkError *LinkError
	// Message is the page-level notice to show, if any.
	Message string
}

// CanSubmit is the ready gate: the form accepts input only once extraction
// and exchange have been attempted. A failed attempt may be resubmitted.
func (r *Recovery) CanSubmit() bool {
	return r != nil && (r.State == RecoveryReady || r.State == RecoveryFailed)
}

// RecoveryInput is what a reset page request knows.
type RecoveryInput struct {
	// ArrivalURL is the landing URL. It includes the fragment only when the
	// browser posted it back.
	ArrivalURL *url.URL
	// Pair, when set, is a token pair already extracted from the landing URL
	// and takes the place of ArrivalURL.
	Pair *TokenPair
	// Existing is the session the browser already holds, if any.
	Existing *identity.Session
	// FragmentChecked is set once the browser has reported its fragment, so
	// a missing token pair is final.
	FragmentChecked bool
}

// PrepareRecovery runs extraction and exchange. A token pair in the URL is
// installed synchronously and is the only session source for the visit;
// without one, a session already established out of band is used. A failed
// installation is logged and the visit still becomes ready, without a session.
func (s *Service) PrepareRecovery(ctx context.Context, in RecoveryInput) *Recovery {
	rec := &Recovery{State: RecoveryExtracting}

	pair, linkErr := in.Pair, (*LinkError)(nil)
	if pair == nil {
		pair, linkErr = TokenPairFromURL(in.ArrivalURL)
	}
	if pair != nil {
		rec.State = RecoveryExchanging
		sess, err := s.provider.SetSession(ctx, pair.AccessToken, pair.RefreshToken)
		if err != nil {
			log.Warn().Err(err).Str("flow", "recovery").Str("source", string(pair.Source)).Str("reason", rejectionReason(err)).Msg("installing session from reset link failed")
			rec.State = RecoveryReady
			return rec
		}
		rec.Session = sess
		rec.Origin = OriginTokenPair
		rec.State = RecoveryReady
		s.publish(ctx, identity.EventPasswordRecovery, sess.User.ID)
		return rec
	}

	if linkErr != nil {
		log.Info().Str("flow", "recovery").Str("code", linkErr.Code).Msg("reset link carried an error")
		rec.LinkError = linkErr
		rec.Message = MsgLinkExpired
		rec.State = RecoveryReady
		return rec
	}

	if in.Existing != nil && in.Existing.AccessToken != "" {
		rec.Session = in.Existing
		rec.Origin = OriginExistingSession
		rec.State = RecoveryReady
		return rec
	}

	if in.FragmentChecked {
		rec.State = RecoveryReady
	}
	return rec
}

// SubmitNewPassword validates locally, then updates the password on the
// recovery session. On success the recovery session is signed out so the
// user signs in again with the new password.
func (s *Service) SubmitNewPassword(ctx context.Context, rec *Recovery, password, confirm string) error {
	if !rec.CanSubmit() {
		return &FlowError{Message: MsgNotReady}
	}
	if err := ValidateNewPassword(password, confirm); err != nil {
		rec.State = RecoveryReady
		rec.Message = ""
		return err
	}

	rec.State = RecoverySubmitting
	if rec.Session == nil || rec.Session.AccessToken == "" {
		rec.State = RecoveryFailed
		rec.Message = MsgLinkExpired
		s.metrics.PasswordUpdate("no_session")
		return &FlowError{Message: MsgLinkExpired}
	}

	if _, err := s.provider.UpdatePassword(ctx, rec.Session.AccessToken, password); err != nil {
		rec.State = RecoveryFailed
		if identity.IsRejection(err) {
			log.Info().Err(err).Str("flow", "recovery").Msg("password update rejected")
			rec.Message = MsgLinkExpired
			s.metrics.PasswordUpdate("rejected")
		} else {
			log.Err(err).Str("flow", "recovery").Msg("password update failed")
			rec.Message = MsgUnexpected
			s.metrics.PasswordUpdate("error")
		}
		return &FlowError{Message: rec.Message, Err: err}
	}

	rec.State = RecoveryUpdated
	rec.Message = ""
	s.metrics.PasswordUpdate("success")
	s.publish(ctx, identity.EventUserUpdated, rec.Session.User.ID)

	if err := s.SignOut(ctx, rec.Session.AccessToken); err != nil {
		log.Warn().Err(err).Str("flow", "recovery").Msg("ending recovery session failed")
	}
	rec.Session = nil
	return nil
}
