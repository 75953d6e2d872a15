package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-catalogue-editor/assets"
	apperrors "github.com/jrsteele09/go-catalogue-editor/internal/errors"
	"github.com/jrsteele09/go-catalogue-editor/sessions"
	"github.com/rs/zerolog/log"
)

// authFailure maps a session error to the API response for it.
func authFailure(err error) (int, string) {
	if apperrors.Is(err, apperrors.ErrUnauthorized) || apperrors.Is(err, apperrors.ErrRefreshAccessToken) {
		return http.StatusUnauthorized, assets.Unauthorized
	}
	log.Error().Err(err).Msg("session lookup failed")
	return http.StatusInternalServerError, "Internal server error"
}

// RequireSession is middleware for JSON routes. It resolves the session cookie to a
// session with a usable access token, renewing it when needed, and stores that
// session in the request context.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			session, err := s.tokens.ValidSession(r.Context(), s.sessionIDFromRequest(r))
			if err != nil {
				status, msg := authFailure(err)
				writeJSON(w, status, errorBody{Error: msg})
				return
			}
			next(w, r.WithContext(sessions.NewContext(r.Context(), session)))
		}
	}
}

// RequirePageSession is the HTML variant: an unusable session forces a logout and
// a fresh login instead of an error page.
func (s *Server) RequirePageSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID := s.sessionIDFromRequest(r)
			if sessionID == "" {
				http.Redirect(w, r, s.path(RouteLogin)+"?return_to="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
				return
			}
			session, err := s.tokens.ValidSession(r.Context(), sessionID)
			if err != nil {
				if status, _ := authFailure(err); status == http.StatusUnauthorized {
					s.forceLogout(w, r)
					return
				}
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			next(w, r.WithContext(sessions.NewContext(r.Context(), session)))
		}
	}
}

func (s *Server) forceLogout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, s.path(RouteAuthLogout), http.StatusSeeOther)
}
