// auth.go implements HTTP handlers for OIDC login, the OAuth callback, logout,
// token refresh, and the current-user endpoint.
package accounts

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/auth"
	"github.com/familyvault/familyvault/internal/auth/oidc"
	"github.com/familyvault/familyvault/internal/config"
	"github.com/familyvault/familyvault/internal/crypto"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/identity"
	"github.com/familyvault/familyvault/internal/middleware"
)

// AuthHandlers handles authentication-related endpoints
type AuthHandlers struct {
	cfg          *config.Config
	userRepo     *repositories.UserRepository
	teamRepo     *repositories.TeamRepository
	resolver     *identity.Resolver
	tokenCipher  *crypto.TokenCipher // nil when no encryption key is configured
	oidcProvider atomic.Pointer[oidc.OIDCProvider]

	mu           sync.Mutex
	sessionStore map[string]*loginState
}

// loginState represents OAuth state during the authentication flow
type loginState struct {
	State     string
	CreatedAt time.Time
}

// stateTTL bounds how long a login attempt may sit between redirect and callback.
const stateTTL = 5 * time.Minute

// NewAuthHandlers creates a new AuthHandlers instance. The OIDC provider is
// initialized eagerly when enabled so misconfiguration fails at startup, not at
// the first login.
func NewAuthHandlers(
	cfg *config.Config,
	userRepo *repositories.UserRepository,
	teamRepo *repositories.TeamRepository,
	resolver *identity.Resolver,
	tokenCipher *crypto.TokenCipher,
) (*AuthHandlers, error) {
	h := &AuthHandlers{
		cfg:          cfg,
		userRepo:     userRepo,
		teamRepo:     teamRepo,
		resolver:     resolver,
		tokenCipher:  tokenCipher,
		sessionStore: make(map[string]*loginState),
	}

	if cfg.Auth.OIDC.Enabled {
		provider, err := oidc.NewOIDCProvider(&cfg.Auth.OIDC)
		if err != nil {
			return nil, err
		}
		h.oidcProvider.Store(provider)
	}

	return h, nil
}

// SetOIDCProvider atomically swaps the active OIDC provider. Used by tests and
// by deployments that finish provider configuration after startup.
func (h *AuthHandlers) SetOIDCProvider(provider *oidc.OIDCProvider) {
	h.oidcProvider.Store(provider)
}

// generateState generates a random state string for OAuth CSRF protection
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// LoginHandler initiates the OIDC login flow
// GET /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		provider := h.oidcProvider.Load()
		if provider == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "OIDC provider not configured",
			})
			return
		}

		state, err := generateState()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to generate state",
			})
			return
		}

		h.mu.Lock()
		h.sessionStore[state] = &loginState{State: state, CreatedAt: time.Now()}
		h.mu.Unlock()

		c.Redirect(http.StatusFound, provider.GetAuthURL(state))
	}
}

// consumeState validates and removes a pending login state, expiring stale
// entries as a side effect.
func (h *AuthHandlers) consumeState(state string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for key, pending := range h.sessionStore {
		if now.Sub(pending.CreatedAt) > stateTTL {
			delete(h.sessionStore, key)
		}
	}

	if _, ok := h.sessionStore[state]; !ok {
		return false
	}
	delete(h.sessionStore, state)
	return true
}

// CallbackHandler handles the OAuth callback: it exchanges the authorization
// code for tokens, upserts the local user row, and redirects the browser to
// the frontend callback page with a session JWT.
// GET /api/v1/auth/callback?code=...&state=...
func (h *AuthHandlers) CallbackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		frontendBase := deriveFrontendURL(h.cfg)

		// callbackError redirects the browser to the frontend callback page with
		// error details as query parameters so the user lands on a page that can
		// display them. Falls back to plain JSON when no frontend URL is known.
		callbackError := func(errCode, description string) {
			if frontendBase == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": description})
				return
			}
			target := fmt.Sprintf(
				"%s/auth/callback?error=%s&error_description=%s",
				frontendBase,
				url.QueryEscape(errCode),
				url.QueryEscape(description),
			)
			c.Redirect(http.StatusFound, target)
		}

		provider := h.oidcProvider.Load()
		if provider == nil {
			callbackError("provider_not_configured", "OIDC provider is not configured.")
			return
		}

		code := c.Query("code")
		state := c.Query("state")
		if !h.consumeState(state) {
			callbackError("invalid_state", "Invalid or expired state parameter. Please try logging in again.")
			return
		}

		ctx := c.Request.Context()

		token, err := provider.ExchangeCode(ctx, code)
		if err != nil {
			callbackError("token_exchange_failed", "Failed to exchange authorization code for token.")
			return
		}

		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok {
			callbackError("no_id_token", "The identity provider did not return an ID token.")
			return
		}

		idToken, err := provider.VerifyIDToken(ctx, rawIDToken)
		if err != nil {
			callbackError("id_token_invalid", "The ID token could not be verified.")
			return
		}

		sub, email, name, err := provider.ExtractUserInfo(idToken)
		if err != nil {
			callbackError("user_info_failed", "Failed to extract user information from the ID token.")
			return
		}

		user, err := h.userRepo.UpsertFromOIDC(ctx, sub, email, name)
		if err != nil {
			if errors.Is(err, repositories.ErrEmailConflict) {
				callbackError("email_conflict", "An account with this email already exists under a different sign-in identity.")
				return
			}
			callbackError("user_creation_failed", "Failed to look up or create your account.")
			return
		}

		// Store the provider refresh token, encrypted, when both the token and
		// a cipher are available. Losing it only costs a re-login later.
		if token.RefreshToken != "" && h.tokenCipher != nil {
			if enc, sealErr := h.tokenCipher.Seal(token.RefreshToken); sealErr == nil {
				if setErr := h.userRepo.SetRefreshToken(ctx, user.ID, &enc); setErr != nil {
					slog.Warn("failed to store refresh token", "user_id", user.ID, "error", setErr)
				}
			} else {
				slog.Warn("failed to encrypt refresh token", "user_id", user.ID, "error", sealErr)
			}
		}

		jwtToken, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.Session.TTL)
		if err != nil {
			callbackError("jwt_failed", "Failed to generate an authentication token.")
			return
		}

		redirectTarget := fmt.Sprintf("%s/auth/callback?token=%s", frontendBase, url.QueryEscape(jwtToken))
		c.Redirect(http.StatusFound, redirectTarget)
	}
}

// LogoutHandler terminates the OIDC SSO session by redirecting to the
// provider's end_session_endpoint when it advertises one. Without this,
// clicking "Log in" after logout silently re-authenticates the user via the
// still-active IdP session cookie.
// GET /api/v1/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		frontendBase := deriveFrontendURL(h.cfg)
		postLogoutRedirect := frontendBase + "/"

		provider := h.oidcProvider.Load()
		if provider != nil {
			if endSessionURL := provider.GetEndSessionEndpoint(); endSessionURL != "" {
				logoutURL, err := url.Parse(endSessionURL)
				if err == nil {
					q := logoutURL.Query()
					q.Set("post_logout_redirect_uri", postLogoutRedirect)
					// Keycloak requires either id_token_hint or client_id when
					// post_logout_redirect_uri is set. client_id is public config
					// and requires nothing stored client-side.
					q.Set("client_id", h.cfg.Auth.OIDC.ClientID)
					logoutURL.RawQuery = q.Encode()
					c.Redirect(http.StatusFound, logoutURL.String())
					return
				}
			}
		}

		c.Redirect(http.StatusFound, postLogoutRedirect)
	}
}

// RefreshHandler exchanges a valid JWT for a fresh one with extended expiration
// POST /api/v1/auth/refresh
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		user, err := h.userRepo.GetUserByID(c.Request.Context(), userID)
		if err != nil || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}

		ttl := h.cfg.Auth.Session.TTL
		newToken, err := auth.GenerateJWT(user.ID, user.Email, ttl)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate new token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      newToken,
			"expires_in": int(ttl.Seconds()),
		})
	}
}

// MeHandler returns the current user along with their resolved team and role.
// This is the endpoint the frontend hits on every page load, so team
// resolution runs here too and provisions a team on a user's very first call.
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		ctx := c.Request.Context()
		user, err := h.userRepo.GetUserByID(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user information"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		teamID, err := h.resolver.ResolveTeam(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not determine team"})
			return
		}

		team, err := h.teamRepo.GetByID(ctx, teamID)
		if err != nil || team == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load team"})
			return
		}

		membership, err := h.teamRepo.GetMembership(ctx, teamID, userID)
		if err != nil || membership == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load membership"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user": gin.H{
				"id":         user.ID,
				"email":      user.Email,
				"name":       user.Name,
				"created_at": user.CreatedAt,
				"updated_at": user.UpdatedAt,
			},
			"team": gin.H{
				"id":              team.ID,
				"name":            team.Name,
				"plan":            team.Plan,
				"onboarding_step": team.OnboardingStep,
			},
			"role": membership.Role,
		})
	}
}

// UpdateMeHandler changes the current user's display name. Email is owned by
// the identity provider and cannot be edited here.
// PUT /api/v1/auth/me
func (h *AuthHandlers) UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		name := strings.TrimSpace(req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		user, err := h.userRepo.UpdateName(c.Request.Context(), userID, name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.Name,
			"created_at": user.CreatedAt,
			"updated_at": user.UpdatedAt,
		})
	}
}

// currentUserID reads the authenticated user id set by the auth middleware.
func currentUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get(middleware.UserIDContextKey)
	if !exists {
		return "", false
	}
	id, ok := val.(string)
	return id, ok && id != ""
}

// deriveFrontendURL returns the browser-facing base URL of the frontend SPA.
// It tries (in order):
//  1. cfg.Server.PublicURL — set explicitly to the frontend's public address
//  2. The origin of cfg.Auth.OIDC.RedirectURL — the registered callback URL
//     already points at the public address, so stripping its path gives the base.
//  3. cfg.Server.BaseURL — internal backend address, last resort.
func deriveFrontendURL(cfg *config.Config) string {
	if cfg.Server.PublicURL != "" {
		return strings.TrimRight(cfg.Server.PublicURL, "/")
	}
	if cfg.Auth.OIDC.RedirectURL != "" {
		if u, err := url.Parse(cfg.Auth.OIDC.RedirectURL); err == nil {
			return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
		}
	}
	return strings.TrimRight(cfg.Server.BaseURL, "/")
}
