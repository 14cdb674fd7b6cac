package chi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader carries an API key for clients that cannot send Authorization.
const APIKeyHeader = "X-Facetdex-API-Key"

// exemptPaths bypass authentication and rate limiting.
var exemptPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// Keys holds the accepted API keys. Admin keys open every route; search keys
// only open the read-only search routes, so they can ship to browsers.
type Keys struct {
	Admin  []string
	Search []string
}

type scope int

const (
	scopeNone scope = iota
	scopeSearch
	scopeAdmin
)

type keyring struct {
	admin  [][]byte
	search [][]byte
}

func newKeyring(k Keys) keyring {
	var kr keyring
	for _, s := range k.Admin {
		if s != "" {
			kr.admin = append(kr.admin, []byte(s))
		}
	}
	for _, s := range k.Search {
		if s != "" {
			kr.search = append(kr.search, []byte(s))
		}
	}
	return kr
}

func (kr keyring) empty() bool { return len(kr.admin) == 0 && len(kr.search) == 0 }

// scopeOf compares token against every key in constant time per key.
func (kr keyring) scopeOf(token string) scope {
	t := []byte(token)
	for _, k := range kr.admin {
		if subtle.ConstantTimeCompare(t, k) == 1 {
			return scopeAdmin
		}
	}
	for _, k := range kr.search {
		if subtle.ConstantTimeCompare(t, k) == 1 {
			return scopeSearch
		}
	}
	return scopeNone
}

// searchRoute reports whether r only reads: a search or refine round.
func searchRoute(r *http.Request) bool {
	if r.Method != http.MethodPost || !strings.HasPrefix(r.URL.Path, "/indexes/") {
		return false
	}
	return strings.HasSuffix(r.URL.Path, "/search") || strings.HasSuffix(r.URL.Path, "/refine")
}

// requestToken extracts the key from "Authorization: Bearer" or APIKeyHeader.
// ok is false when an Authorization header uses another scheme.
func requestToken(r *http.Request) (token string, ok bool) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(auth, bearerPrefix) {
			return "", false
		}
		return auth[len(bearerPrefix):], true
	}
	return r.Header.Get(APIKeyHeader), true
}

// APIKeyMiddleware validates API keys and their scope. With no keys
// configured, authentication is disabled (pass-through).
func APIKeyMiddleware(keys Keys) func(http.Handler) http.Handler {
	kr := newKeyring(keys)

	return func(next http.Handler) http.Handler {
		if kr.empty() {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			// Preflight requests carry no credentials.
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := requestToken(r)
			switch {
			case !ok:
				writeError(w, http.StatusUnauthorized,
					CodeUnauthorized, "authorization header must use Bearer scheme")
				return
			case token == "":
				w.Header().Set("WWW-Authenticate", `Bearer realm="facetdex"`)
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "missing api key")
				return
			}

			switch kr.scopeOf(token) {
			case scopeAdmin:
			case scopeSearch:
				if !searchRoute(r) {
					writeError(w, http.StatusForbidden, CodeForbidden, "search api key cannot access this route")
					return
				}
			default:
				writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
