package server

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-catalogue-editor/server/authflowrepo"
	"github.com/rs/zerolog/log"
)

// LoginHandler starts the authorization code flow with state, nonce and PKCE.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateRandomString(32)
		nonce := generateRandomString(32)
		verifier := generateRandomString(64)

		flow := authflowrepo.AuthFlowState{
			CodeVerifier: verifier,
			Nonce:        nonce,
			ReturnURL:    s.safeReturnPath(r.URL.Query().Get("return_to")),
			CreatedAt:    time.Now(),
		}
		if err := s.authFlows.Put(r.Context(), state, flow); err != nil {
			log.Error().Err(err).Msg("failed to store auth flow state")
			http.Error(w, "Failed to start login", http.StatusInternalServerError)
			return
		}

		authURL, err := s.oidc.AuthCodeURL(r.Context(), state, nonce, generateCodeChallenge(verifier))
		if err != nil {
			log.Error().Err(err).Msg("failed to build authorization url")
			http.Error(w, "Identity provider unavailable", http.StatusBadGateway)
			return
		}

		s.SetAuthFlowCookie(w, r, state)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the login and establishes the server-side session.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := r.FormValue("state")
		code := r.FormValue("code")

		if errorParam := r.FormValue("error"); errorParam != "" {
			log.Warn().Str("error", errorParam).Str("description", r.FormValue("error_description")).Msg("authorization failed")
			http.Error(w, "Authorization failed: "+errorParam, http.StatusBadRequest)
			return
		}
		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		// the state must come back to the browser that started the flow
		cookie, err := r.Cookie(authFlowCookieName)
		if err != nil || cookie.Value != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}
		s.ClearAuthFlowCookie(w, r)

		flow, err := s.authFlows.Take(r.Context(), state)
		if err != nil {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		result, err := s.oidc.Exchange(r.Context(), code, flow.CodeVerifier)
		if err != nil {
			log.Error().Err(err).Msg("code exchange failed")
			http.Error(w, "Login failed", http.StatusUnauthorized)
			return
		}

		// Validate nonce to prevent replay attacks
		if result.Nonce != flow.Nonce {
			http.Error(w, "Invalid nonce", http.StatusUnauthorized)
			return
		}

		session, err := s.tokens.Establish(r.Context(), result.Identity, result.Grant)
		if err != nil {
			log.Error().Err(err).Msg("failed to create session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		signed, err := s.cookies.Sign(session.ID, session.UserID)
		if err != nil {
			log.Error().Err(err).Msg("failed to sign session cookie")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		s.SetSessionCookie(w, r, signed, s.cookies.MaxAge())

		log.Info().Str("user", session.UserID).Msg("user logged in")
		http.Redirect(w, r, s.safeReturnPath(flow.ReturnURL), http.StatusSeeOther)
	}
}

// LogoutHandler ends the server-side session and clears the cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID := s.sessionIDFromRequest(r); sessionID != "" {
			if err := s.tokens.End(r.Context(), sessionID); err != nil {
				log.Error().Err(err).Msg("failed to end session")
			}
		}
		s.ClearSessionCookie(w, r)
		http.Redirect(w, r, s.path("/"), http.StatusSeeOther)
	}
}

type sessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

type sessionSummary struct {
	User    sessionUser `json:"user"`
	Expires time.Time   `json:"expires"`
	Error   string      `json:"error,omitempty"`
}

// SessionHandler reports the current session without exposing tokens.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.tokens.ValidSession(r.Context(), s.sessionIDFromRequest(r))
		if err != nil {
			status, msg := authFailure(err)
			if session.Error != "" {
				msg = string(session.Error)
			}
			writeJSON(w, status, errorBody{Error: msg})
			return
		}
		writeJSON(w, http.StatusOK, sessionSummary{
			User: sessionUser{
				ID:    session.UserID,
				Name:  session.Name,
				Email: session.Email,
				Image: session.Image,
			},
			Expires: session.CreatedAt.Add(s.cookies.MaxAge()),
		})
	}
}
