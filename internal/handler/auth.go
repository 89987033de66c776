package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/paperplane/internal/auth"
	"github.com/sakif/paperplane/internal/service"
)

// KakaoProvider is the part of auth.KakaoProvider the login flow needs.
type KakaoProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.KakaoUser, error)
}

// LoginService is the part of service.AuthService the login flow needs.
type LoginService interface {
	LoginOrRegisterKakao(ctx context.Context, ku *auth.KakaoUser) (*service.AuthResult, error)
}

const stateCookie = "oauth_state"

// AuthHandler runs the Kakao login flow and logout.
type AuthHandler struct {
	kakao     KakaoProvider
	logins    LoginService
	cookieTTL time.Duration
	secure    bool
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieTTL should match the token
// lifetime; secure marks cookies HTTPS-only and is set outside development.
func NewAuthHandler(kakao KakaoProvider, logins LoginService, cookieTTL time.Duration, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		kakao:     kakao,
		logins:    logins,
		cookieTTL: cookieTTL,
		secure:    secure,
		logger:    logger,
	}
}

// HandleKakaoLogin redirects to the Kakao consent page. A random state goes
// into a short-lived cookie and must come back on the callback.
//
// HTTP: GET /auth/kakao/login
func (h *AuthHandler) HandleKakaoLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.kakao.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleKakaoCallback checks the state, exchanges the code, logs the user in
// and sets the session cookie.
//
// HTTP: GET /auth/kakao/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleKakaoCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: missing or mismatched state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	kakaoUser, err := h.kakao.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: Kakao exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.logins.LoginOrRegisterKakao(r.Context(), kakaoUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.String("kakaoID", kakaoUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout deletes the session cookie. The token itself stays valid
// until it expires; without the cookie the browser stops sending it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
