package identity

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jrsteele09/takemethere/identity"

// Traced wraps a Provider so that every call is a client span. Tokens,
// passwords and email addresses are never recorded as attributes.
func Traced(p Provider) Provider {
	return &tracedProvider{next: p, tracer: otel.Tracer(tracerName)}
}

type tracedProvider struct {
	next   Provider
	tracer trace.Tracer
}

func (t *tracedProvider) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "identity."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("identity.rejected", IsRejection(err)))
	}
	span.End()
}

func (t *tracedProvider) SignInWithPassword(ctx context.Context, email, password string) (s *Session, err error) {
	ctx, span := t.start(ctx, "SignInWithPassword")
	defer func() { end(span, err) }()
	return t.next.SignInWithPassword(ctx, email, password)
}

func (t *tracedProvider) SignUp(ctx context.Context, email, password string, md Metadata) (id *Identity, err error) {
	ctx, span := t.start(ctx, "SignUp")
	defer func() { end(span, err) }()
	return t.next.SignUp(ctx, email, password, md)
}

func (t *tracedProvider) SignOut(ctx context.Context, accessToken string) (err error) {
	ctx, span := t.start(ctx, "SignOut")
	defer func() { end(span, err) }()
	return t.next.SignOut(ctx, accessToken)
}

func (t *tracedProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) (err error) {
	ctx, span := t.start(ctx, "ResetPasswordForEmail", attribute.String("identity.redirect_to", redirectTo))
	defer func() { end(span, err) }()
	return t.next.ResetPasswordForEmail(ctx, email, redirectTo)
}

func (t *tracedProvider) ExchangeCodeForSession(ctx context.Context, code, verifier string) (s *Session, err error) {
	ctx, span := t.start(ctx, "ExchangeCodeForSession", attribute.Bool("identity.pkce", verifier != ""))
	defer func() { end(span, err) }()
	return t.next.ExchangeCodeForSession(ctx, code, verifier)
}

func (t *tracedProvider) SetSession(ctx context.Context, accessToken, refreshToken string) (s *Session, err error) {
	ctx, span := t.start(ctx, "SetSession")
	defer func() { end(span, err) }()
	return t.next.SetSession(ctx, accessToken, refreshToken)
}

func (t *tracedProvider) RefreshSession(ctx context.Context, refreshToken string) (s *Session, err error) {
	ctx, span := t.start(ctx, "RefreshSession")
	defer func() { end(span, err) }()
	return t.next.RefreshSession(ctx, refreshToken)
}

func (t *tracedProvider) UpdatePassword(ctx context.Context, accessToken, newPassword string) (id *Identity, err error) {
	ctx, span := t.start(ctx, "UpdatePassword")
	defer func() { end(span, err) }()
	return t.next.UpdatePassword(ctx, accessToken, newPassword)
}

func (t *tracedProvider) GetUser(ctx context.Context, accessToken string) (id *Identity, err error) {
	ctx, span := t.start(ctx, "GetUser")
	defer func() { end(span, err) }()
	return t.next.GetUser(ctx, accessToken)
}

func (t *tracedProvider) AuthorizeURL(ctx context.Context, req AuthorizeRequest) (u string, err error) {
	ctx, span := t.start(ctx, "AuthorizeURL", attribute.String("identity.oauth_provider", req.Provider))
	defer func() { end(span, err) }()
	return t.next.AuthorizeURL(ctx, req)
}
