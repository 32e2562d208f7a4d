package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/bankdesk/internal/auth"
	"github.com/geocoder89/bankdesk/internal/config"
	"github.com/geocoder89/bankdesk/internal/domain/session"
	"github.com/geocoder89/bankdesk/internal/domain/user"
	"github.com/geocoder89/bankdesk/internal/observability"
	"github.com/geocoder89/bankdesk/internal/security"
	"github.com/gin-gonic/gin"
)

const (
	refreshCookieName = "refresh_token"

	msgBadCredentials  = "Incorrect username or password"
	msgBadRefreshToken = "Could not validate credentials"
)

type UserReader interface {
	GetByUsername(ctx context.Context, username string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type RefreshTokenStore interface {
	Create(ctx context.Context, row session.RefreshToken) error
	Rotate(ctx context.Context, presentedID, presentedHash string, next session.RefreshToken) (session.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type AuthHandler struct {
	users        UserReader
	refreshStore RefreshTokenStore
	jwt          *auth.Manager
	secureCookie bool
	metrics      *observability.Prom
	log          *slog.Logger
}

func NewAuthHandler(users UserReader, refreshStore RefreshTokenStore, jwtManager *auth.Manager, cfg config.Config, metrics *observability.Prom, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users:        users,
		refreshStore: refreshStore,
		jwt:          jwtManager,
		secureCookie: cfg.Env == "prod",
		metrics:      metrics,
		log:          log,
	}
}

// LoginRequest binds from the OAuth2 password form or from a JSON body.
type LoginRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	TokenType             string `json:"token_type"`
	Role                  string `json:"role"`
	AccessTokenExpiresIn  int64  `json:"access_token_expires_in"`
	RefreshTokenExpiresIn int64  `json:"refresh_token_expires_in"`
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !Bind(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	foundUser, err := h.users.GetByUsername(cctx, req.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// keep unknown usernames as slow as wrong passwords
			security.BurnCompare(req.Password)
			h.metrics.AuthEvent("login", "rejected")
			RespondUnAuthorized(ctx, "invalid_credentials", msgBadCredentials)
			return
		}

		h.log.ErrorContext(cctx, "login lookup failed", "err", err)
		h.metrics.AuthEvent("login", "error")
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(foundUser.PasswordHash, req.Password); err != nil {
		h.metrics.AuthEvent("login", "rejected")
		RespondUnAuthorized(ctx, "invalid_credentials", msgBadCredentials)
		return
	}

	issued, err := h.issueRefresh(foundUser)
	if err != nil {
		h.log.ErrorContext(cctx, "sign refresh token failed", "err", err)
		RespondInternal(ctx, "Could not create session")
		return
	}

	err = h.refreshStore.Create(cctx, h.refreshRow(foundUser.ID, issued))
	if err != nil {
		h.log.ErrorContext(cctx, "store refresh token failed", "err", err)
		h.metrics.AuthEvent("login", "error")
		RespondInternal(ctx, "Could not create session")
		return
	}

	h.metrics.AuthEvent("login", "ok")
	h.respondTokens(ctx, foundUser, issued)
}

// Refresh rotates the presented refresh token. A token that was already
// rotated away is treated as stolen and ends every session of its owner;
// one ended by logout is only refused.
func (h *AuthHandler) Refresh(ctx *gin.Context) {
	raw := h.presentedRefreshToken(ctx)
	if raw == "" {
		h.metrics.AuthEvent("refresh", "rejected")
		RespondUnAuthorized(ctx, "invalid_refresh", msgBadRefreshToken)
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		h.metrics.AuthEvent("refresh", "rejected")
		RespondUnAuthorized(ctx, "invalid_refresh", msgBadRefreshToken)
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	// the role on the new tokens comes from the store, not the old claims
	u, err := h.users.GetByID(cctx, claims.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			h.metrics.AuthEvent("refresh", "rejected")
			RespondUnAuthorized(ctx, "invalid_refresh", msgBadRefreshToken)
			return
		}
		h.log.ErrorContext(cctx, "refresh user lookup failed", "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	issued, err := h.issueRefresh(u)
	if err != nil {
		h.log.ErrorContext(cctx, "sign refresh token failed", "err", err)
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	stored, err := h.refreshStore.Rotate(cctx, claims.JTI, h.jwt.HashRefreshToken(raw), h.refreshRow(u.ID, issued))
	switch {
	case err == nil:
	case errors.Is(err, session.ErrRefreshTokenReused):
		owner := stored.UserID
		if owner == "" {
			owner = u.ID
		}
		if revokeErr := h.refreshStore.RevokeAllForUser(cctx, owner); revokeErr != nil {
			h.log.ErrorContext(cctx, "revoke sessions after reuse failed", "err", revokeErr, "user_id", owner)
		}
		h.log.WarnContext(cctx, "refresh token reuse detected", "user_id", owner, "jti", claims.JTI)
		h.metrics.AuthEvent("refresh", "reused")
		h.clearRefreshCookie(ctx)
		RespondUnAuthorized(ctx, "invalid_refresh", msgBadRefreshToken)
		return
	case errors.Is(err, session.ErrRefreshTokenNotFound),
		errors.Is(err, session.ErrRefreshTokenRevoked),
		errors.Is(err, session.ErrRefreshTokenExpired),
		errors.Is(err, session.ErrRefreshTokenMismatch):
		h.metrics.AuthEvent("refresh", "rejected")
		RespondUnAuthorized(ctx, "invalid_refresh", msgBadRefreshToken)
		return
	default:
		h.log.ErrorContext(cctx, "rotate refresh token failed", "err", err)
		h.metrics.AuthEvent("refresh", "error")
		RespondInternal(ctx, "Could not refresh session")
		return
	}

	h.metrics.AuthEvent("refresh", "ok")
	h.respondTokens(ctx, u, issued)
}

// Logout always answers 204 and clears the cookie, even for unknown tokens.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	defer func() {
		h.clearRefreshCookie(ctx)
		ctx.Status(http.StatusNoContent)
	}()

	raw := h.presentedRefreshToken(ctx)
	if raw == "" {
		return
	}

	claims, err := h.jwt.VerifyRefreshToken(raw)
	if err != nil {
		return
	}

	cctx, cancel := config.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.refreshStore.Revoke(cctx, claims.JTI); err != nil {
		h.log.ErrorContext(cctx, "revoke refresh token failed", "err", err)
		return
	}
	h.metrics.AuthEvent("logout", "ok")
}

// Helper functions

// presentedRefreshToken prefers the cookie and falls back to a JSON body.
func (h *AuthHandler) presentedRefreshToken(ctx *gin.Context) string {
	if raw, err := ctx.Cookie(refreshCookieName); err == nil && raw != "" {
		return raw
	}

	var body refreshRequest
	if ctx.Request.Body != nil && ctx.Request.ContentLength != 0 {
		_ = ctx.ShouldBindJSON(&body)
	}
	return body.RefreshToken
}

func (h *AuthHandler) issueRefresh(u user.User) (auth.IssuedRefresh, error) {
	return h.jwt.GenerateRefreshToken(u.ID, u.Username, u.Role)
}

func (h *AuthHandler) refreshRow(userID string, issued auth.IssuedRefresh) session.RefreshToken {
	return session.RefreshToken{
		ID:        issued.JTI,
		UserID:    userID,
		TokenHash: h.jwt.HashRefreshToken(issued.Raw),
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: time.Now().UTC(),
	}
}

func (h *AuthHandler) respondTokens(ctx *gin.Context, u user.User, issued auth.IssuedRefresh) {
	accessToken, err := h.jwt.GenerateAccessToken(u.ID, u.Username, u.Role)
	if err != nil {
		h.log.ErrorContext(ctx.Request.Context(), "sign access token failed", "err", err)
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	h.setRefreshCookie(ctx, issued.Raw, issued.ExpiresAt)

	ctx.JSON(http.StatusOK, TokenResponse{
		AccessToken:           accessToken,
		RefreshToken:          issued.Raw,
		TokenType:             "bearer",
		Role:                  u.Role,
		AccessTokenExpiresIn:  int64(h.jwt.AccessTTL().Seconds()),
		RefreshTokenExpiresIn: int64(h.jwt.RefreshTTL().Seconds()),
	})
}

func (h *AuthHandler) setRefreshCookie(ctx *gin.Context, raw string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteStrictMode)

	ctx.SetCookie(
		refreshCookieName,
		raw,
		maxAge,
		"/",
		"",
		h.secureCookie,
		true, // HttpOnly.
	)
}

func (h *AuthHandler) clearRefreshCookie(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteStrictMode)
	ctx.SetCookie(refreshCookieName, "", -1, "/", "", h.secureCookie, true)
}
