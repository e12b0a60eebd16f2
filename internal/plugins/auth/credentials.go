package auth

import (
	"net/http"
)

// Cookie names for the session credential pair. Set together on login,
// cleared together on logout.
const (
	CookieSessionToken = "session_token"
	CookieSessionID    = "session_id"
)

// ExtractCredentials parses the raw Cookie request header and returns the
// session credential pair. The second return value is false when either
// cookie is absent or empty. Deliberately transport-independent: the only
// input is the header string, so the middleware stays a thin adapter and
// the parsing is trivially testable.
func ExtractCredentials(rawCookieHeader string) (SessionCredentials, bool) {
	if rawCookieHeader == "" {
		return SessionCredentials{}, false
	}

	cookies, err := http.ParseCookie(rawCookieHeader)
	if err != nil {
		return SessionCredentials{}, false
	}

	var creds SessionCredentials
	for _, c := range cookies {
		switch c.Name {
		case CookieSessionID:
			creds.SessionID = c.Value
		case CookieSessionToken:
			creds.SessionToken = c.Value
		}
	}

	if creds.SessionID == "" || creds.SessionToken == "" {
		return SessionCredentials{}, false
	}
	return creds, true
}
