package identity

import (
	"net"
	"net/url"
	"strings"
)

// OriginOf reduces an absolute URL to scheme://host. It returns "" for
// anything without both parts.
func OriginOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}

// OriginAllowList holds the origins links may be mailed to. Loopback hosts
// are always allowed so local development needs no configuration.
type OriginAllowList struct {
	origins map[string]struct{}
}

func NewOriginAllowList(origins ...string) *OriginAllowList {
	l := &OriginAllowList{origins: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		if o = OriginOf(o); o != "" {
			l.origins[o] = struct{}{}
		}
	}
	return l
}

// Allows reports whether the origin of raw is on the list.
func (l *OriginAllowList) Allows(raw string) bool {
	origin := OriginOf(raw)
	if origin == "" {
		return false
	}
	if _, ok := l.origins[origin]; ok {
		return true
	}
	u, _ := url.Parse(origin)
	return isLoopback(u.Hostname())
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
