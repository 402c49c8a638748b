package auth

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/identity"
)

// SignInResult is a new session and the one place to send the user.
type SignInResult struct {
	Session  *identity.Session
	Redirect string
}

// SignIn ends any session the browser already holds, then authenticates
// email and password. Failures come back as *CredentialError (rejected) or
// *FlowError (unexpected).
func (s *Service) SignIn(ctx context.Context, emailAddr, password, existingAccessToken string) (*SignInResult, error) {
	if existingAccessToken != "" {
		_ = s.SignOut(ctx, existingAccessToken)
	}

	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		s.metrics.SignIn("invalid")
		return nil, &CredentialError{Email: emailAddr, Message: MsgInvalidCredentials, ShowReset: emailAddr != ""}
	}

	sess, err := s.provider.SignInWithPassword(ctx, emailAddr, password)
	if err != nil {
		if identity.IsRejection(err) {
			log.Info().Err(err).Str("flow", "sign_in").Str("reason", rejectionReason(err)).Str("email_hash", hashEmail(emailAddr)).Msg("sign in rejected")
			s.metrics.SignIn("rejected")
			return nil, &CredentialError{Email: emailAddr, Message: MsgInvalidCredentials, ShowReset: true, Err: err}
		}
		log.Err(err).Str("flow", "sign_in").Msg("sign in failed")
		s.metrics.SignIn("error")
		return nil, &FlowError{Message: MsgUnexpected, Err: err}
	}

	s.metrics.SignIn("success")
	s.publish(ctx, identity.EventSignedIn, sess.User.ID)
	return &SignInResult{Session: sess, Redirect: LandingFor(sess.User)}, nil
}

// SignOut ends the session behind accessToken. Provider errors are logged and
// returned but callers clearing a browser session can ignore them.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	var userID string
	if claims, err := identity.UnverifiedClaims(accessToken); err == nil {
		userID = claims.Subject
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		log.Debug().Err(err).Str("flow", "sign_out").Msg("provider sign out failed")
		return err
	}
	s.publish(ctx, identity.EventSignedOut, userID)
	return nil
}

// SignUp registers a business owner account.
func (s *Service) SignUp(ctx context.Context, emailAddr, password, confirm string) (*identity.Identity, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if err := ValidateEmail(emailAddr); err != nil {
		return nil, err
	}
	if err := ValidateNewPassword(password, confirm); err != nil {
		return nil, err
	}

	id, err := s.provider.SignUp(ctx, emailAddr, password, identity.Metadata{"role": string(identity.RoleBusinessOwner)})
	if err != nil {
		if identity.IsRejection(err) {
			log.Info().Err(err).Str("flow", "sign_up").Str("email_hash", hashEmail(emailAddr)).Msg("sign up rejected")
			return nil, &FlowError{Message: MsgSignUpFailed, Err: err}
		}
		log.Err(err).Str("flow", "sign_up").Msg("sign up failed")
		return nil, &FlowError{Message: MsgUnexpected, Err: err}
	}
	return id, nil
}

// ExchangeCode trades a code continuation for a session. The caller must not
// navigate to cont.Next unless this succeeds.
func (s *Service) ExchangeCode(ctx context.Context, cont *CodeContinuation, codeVerifier string) (*identity.Session, error) {
	if cont == nil || cont.Code == "" {
		return nil, &FlowError{Message: MsgLinkExpired}
	}
	sess, err := s.provider.ExchangeCodeForSession(ctx, cont.Code, codeVerifier)
	if err != nil {
		if identity.IsRejection(err) {
			log.Info().Err(err).Str("flow", "code_exchange").Str("reason", rejectionReason(err)).Msg("code exchange rejected")
			return nil, &FlowError{Message: MsgLinkExpired, Err: err}
		}
		log.Err(err).Str("flow", "code_exchange").Msg("code exchange failed")
		return nil, &FlowError{Message: MsgUnexpected, Err: err}
	}

	event := identity.EventSignedIn
	if strings.HasPrefix(cont.Next, PathResetPassword) {
		event = identity.EventPasswordRecovery
	}
	s.publish(ctx, event, sess.User.ID)
	return sess, nil
}

// AuthorizeURL starts a third-party sign-in.
func (s *Service) AuthorizeURL(ctx context.Context, req identity.AuthorizeRequest) (string, error) {
	return s.provider.AuthorizeURL(ctx, req)
}
