package middlewares

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/survey-portal/config"
	"github.com/mbolis/survey-portal/httpx"
	"github.com/mbolis/survey-portal/log"
)

// Session is the authenticated caller of the current request, derived from
// token claims. Handlers receive it explicitly instead of reaching into
// ambient auth state.
type Session struct {
	UserID   int
	Username string
	IsAdmin  bool
}

type ctxKey int

const sessionKey ctxKey = iota

// SessionFrom returns the session injected by the auth middlewares.
// ok is false on anonymous requests.
func SessionFrom(ctx context.Context) (s Session, ok bool) {
	s, ok = ctx.Value(sessionKey).(Session)
	return
}

// Authenticated requires a valid bearer token, from the authorization header
// or the access_token cookie, and injects the caller's Session.
func Authenticated(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(bearerFromCookie, oauth.Authorize(cfg.TokenSecret, nil), sessionize).Handler(next)
	}
}

// Admin requires an authenticated caller holding the admin role.
func Admin(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Authenticated(cfg)(requireAdmin(next))
	}
}

// Optional authenticates the caller when credentials are present, but lets
// anonymous requests through without a session. An invalid token is treated
// as anonymous, not rejected: the endpoints behind it accept both.
func Optional(cfg config.Config) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(cfg.TokenSecret, nil)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setBearerFromCookie(r)
			if r.Header.Get("authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			var authed *http.Request
			buf := httpx.NewResponseBuffer()
			authorize(http.HandlerFunc(func(_ http.ResponseWriter, r2 *http.Request) {
				authed = r2
			})).ServeHTTP(buf, r)

			if authed != nil {
				if s, ok := sessionFromClaims(authed.Context()); ok {
					r = authed.WithContext(context.WithValue(authed.Context(), sessionKey, s))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerFromCookie(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setBearerFromCookie(r)
		next.ServeHTTP(w, r)
	})
}

func setBearerFromCookie(r *http.Request) {
	if r.Header.Get("authorization") != "" {
		return
	}
	if token, err := r.Cookie("access_token"); err == nil {
		r.Header.Set("authorization", "Bearer "+token.Value)
	}
}

func sessionize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFromClaims(r.Context())
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromClaims(ctx context.Context) (s Session, ok bool) {
	claims, ok := ctx.Value(oauth.ClaimsContext).(map[string]string)
	if !ok {
		return
	}

	id, err := strconv.Atoi(claims["user_id"])
	if err != nil {
		return Session{}, false
	}
	s.UserID = id
	s.Username = claims["username"]

	for _, role := range strings.Split(claims["roles"], ",") {
		if role == "admin" {
			s.IsAdmin = true
			break
		}
	}
	return s, true
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFrom(r.Context())
		if !ok || !s.IsAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
