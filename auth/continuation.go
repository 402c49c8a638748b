package auth

import (
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// TokenSource records where a token pair was found in an arrival URL.
type TokenSource string

const (
	SourceQuery    TokenSource = "query"
	SourceFragment TokenSource = "fragment"
)

// TokenPair is a continuation credential carried by a password-reset link.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	Type         string
	Source       TokenSource
}

// LinkError is an error the provider appended to a continuation URL, e.g.
// when the link has already been used.
type LinkError struct {
	Code        string
	Description string
}

func (e *LinkError) Error() string {
	if e.Description != "" {
		return "continuation link: " + e.Code + ": " + e.Description
	}
	return "continuation link: " + e.Code
}

// CodeContinuation is an OAuth-style continuation: a single-use code plus the
// local path to land on once it has been exchanged.
type CodeContinuation struct {
	Code  string
	Next  string
	State string
}

// TokenPairFromURL extracts access_token/refresh_token from the query string,
// or from the fragment when the query does not carry a complete pair.
func TokenPairFromURL(u *url.URL) (*TokenPair, *LinkError) {
	if u == nil {
		return nil, nil
	}
	return tokenPairFrom(u.Query(), fragmentValues(u.EscapedFragment()))
}

func tokenPairFrom(query, fragment url.Values) (*TokenPair, *LinkError) {
	if pair := pairFrom(query, SourceQuery); pair != nil {
		return pair, nil
	}
	if pair := pairFrom(fragment, SourceFragment); pair != nil {
		return pair, nil
	}
	if le := linkErrorFrom(query); le != nil {
		return nil, le
	}
	return nil, linkErrorFrom(fragment)
}

// ParseContinuation parses a raw arrival URL, as posted back by the browser
// so the fragment is included.
// The fragment is read as-is, so a stray bad escape in it does not cost the
// pairs around it.
func ParseContinuation(rawURL string) (*TokenPair, *LinkError, error) {
	base, fragment, _ := strings.Cut(rawURL, "#")
	u, err := url.Parse(base)
	if err != nil {
		return nil, nil, &ValidationError{Field: "url", Message: "Malformed link."}
	}
	pair, le := tokenPairFrom(u.Query(), fragmentValues(fragment))
	return pair, le, nil
}

// CodeFromURL reads an authorization-code continuation. Next defaults to the
// dashboard and is never allowed to leave the site.
func CodeFromURL(u *url.URL) (*CodeContinuation, *LinkError) {
	if u == nil {
		return nil, nil
	}
	q := u.Query()
	code := q.Get("code")
	if code == "" {
		if le := linkErrorFrom(q); le != nil {
			return nil, le
		}
		return nil, linkErrorFrom(fragmentValues(u.EscapedFragment()))
	}
	return &CodeContinuation{
		Code:  code,
		Next:  SafeNext(q.Get("next")),
		State: q.Get("state"),
	}, nil
}

// SafeNext returns next when it is a local absolute path, else the dashboard.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return PathDashboard
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return PathDashboard
	}
	return next
}

func fragmentValues(frag string) url.Values {
	if frag == "" {
		return url.Values{}
	}
	// ParseQuery keeps every well-formed pair even when one is malformed.
	v, err := url.ParseQuery(frag)
	if err != nil {
		log.Debug().Err(err).Msg("fragment has malformed pairs")
	}
	return v
}

func pairFrom(v url.Values, src TokenSource) *TokenPair {
	at, rt := v.Get("access_token"), v.Get("refresh_token")
	if at == "" || rt == "" {
		return nil
	}
	return &TokenPair{AccessToken: at, RefreshToken: rt, Type: v.Get("type"), Source: src}
}

func linkErrorFrom(v url.Values) *LinkError {
	code := v.Get("error_code")
	if code == "" {
		code = v.Get("error")
	}
	if code == "" {
		return nil
	}
	return &LinkError{Code: code, Description: v.Get("error_description")}
}
