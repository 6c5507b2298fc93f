// Package api wires together all HTTP routes for the FamilyVault backend.
//
// Route grouping philosophy:
//   - /healthz, /readyz, and /version are unauthenticated so load balancers
//     and Kubernetes probes can reach them without credentials.
//   - /api/v1/auth login routes are public but strictly rate limited.
//   - Everything else runs behind the auth middleware (who is calling) and the
//     team middleware (which tenant's data this request touches). Handlers
//     below those two never see a request without a user id and a team id.
package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/api/accounts"
	"github.com/familyvault/familyvault/internal/api/vault"
	"github.com/familyvault/familyvault/internal/config"
	"github.com/familyvault/familyvault/internal/crypto"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/identity"
	"github.com/familyvault/familyvault/internal/jobs"
	"github.com/familyvault/familyvault/internal/middleware"
	"github.com/familyvault/familyvault/internal/safego"
	"github.com/familyvault/familyvault/internal/storage"

	// Import storage backends to register them
	_ "github.com/familyvault/familyvault/internal/storage/azure"
	_ "github.com/familyvault/familyvault/internal/storage/gcs"
	_ "github.com/familyvault/familyvault/internal/storage/local"
	_ "github.com/familyvault/familyvault/internal/storage/s3"
)

// BackgroundServices holds references to background goroutines and resources
// that must be stopped during graceful shutdown. The caller (cmd/server) is
// responsible for calling Shutdown() when the process receives a termination
// signal.
type BackgroundServices struct {
	renewalNotifier *jobs.RenewalNotifier
	recorder        *activity.Recorder
	rateLimiters    []*middleware.RateLimiter
}

// Shutdown stops all background goroutines and flushes the activity recorder.
// It should be called after the HTTP server has been shut down so that
// in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.renewalNotifier != nil {
		bg.renewalNotifier.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.recorder != nil {
		if err := bg.recorder.Close(); err != nil {
			slog.Error("failed to close activity recorder", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Initialized storage backend: %s", cfg.Storage.DefaultBackend)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	teamRepo := repositories.NewTeamRepository(db)
	docRepo := repositories.NewDocumentRepository(db)
	assetRepo := repositories.NewAssetRepository(db)
	attRepo := repositories.NewAttachmentRepository(db)
	contactRepo := repositories.NewContactRepository(db)

	// Wrap *sql.DB with sqlx for the repositories written against it
	sqlxDB := sqlx.NewDb(db, "postgres")
	eventRepo := repositories.NewEventRepository(sqlxDB)
	subRepo := repositories.NewSubscriptionRepository(sqlxDB)
	activityRepo := repositories.NewActivityRepository(sqlxDB)

	// Identity resolution: user -> team, provisioning on first touch
	resolver := identity.NewResolver(userRepo, teamRepo)

	// Activity recorder with optional external shippers
	shippers, err := activity.NewShippers(cfg.Activity.Shippers)
	if err != nil {
		log.Fatalf("Failed to initialize activity shippers: %v", err)
	}
	recorder := activity.NewRecorder(activityRepo, shippers)

	// Token cipher for encrypting OIDC refresh tokens at rest. Optional: when
	// no key is configured, refresh tokens are simply not persisted.
	var tokenCipher *crypto.TokenCipher
	if key := os.Getenv("FV_ENCRYPTION_KEY"); key != "" {
		tokenCipher, err = crypto.NewTokenCipher([]byte(key))
		if err != nil {
			log.Fatalf("Failed to initialize token cipher: %v", err)
		}
	} else {
		slog.Warn("FV_ENCRYPTION_KEY not set; OIDC refresh tokens will not be persisted")
	}

	// Start the subscription renewal reminder job (no-op when disabled)
	renewalNotifier := jobs.NewRenewalNotifier(subRepo, recorder, &cfg.Jobs)
	safego.Go(func() { renewalNotifier.Start(context.Background()) })

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Liveness probe
	router.GET("/healthz", healthCheckHandler(db))

	// Readiness probe (includes storage backend check)
	router.GET("/readyz", readinessHandler(db, storageBackend))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	authHandlers, err := accounts.NewAuthHandlers(cfg, userRepo, teamRepo, resolver, tokenCipher)
	if err != nil {
		log.Fatalf("Failed to initialize auth handlers: %v", err)
	}
	teamHandlers := accounts.NewTeamHandlers(teamRepo, recorder)
	inviteHandlers := accounts.NewInviteHandlers(teamRepo, userRepo, recorder)
	onboardingHandlers := accounts.NewOnboardingHandlers(teamRepo)

	docHandlers := vault.NewDocumentHandlers(docRepo, storageBackend, recorder, cfg)
	assetHandlers := vault.NewAssetHandlers(assetRepo, recorder)
	attHandlers := vault.NewAttachmentHandlers(attRepo, assetRepo, storageBackend, recorder, cfg)
	contactHandlers := vault.NewContactHandlers(contactRepo, recorder)
	eventHandlers := vault.NewEventHandlers(eventRepo, recorder)
	subHandlers := vault.NewSubscriptionHandlers(subRepo, recorder)
	activityHandlers := vault.NewActivityHandlers(activityRepo)

	// Initialize rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	uploadRateLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoints (no auth required, strictly rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.GET("/login", authHandlers.LoginHandler())
			authGroup.GET("/callback", authHandlers.CallbackHandler())
			authGroup.GET("/logout", authHandlers.LogoutHandler())
		}

		// Authenticated endpoints without a team scope. /auth/me performs its
		// own team resolution; invite acceptance targets the inviting team.
		authenticated := apiV1.Group("")
		authenticated.Use(middleware.AuthMiddleware(userRepo))
		authenticated.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		{
			authenticated.POST("/auth/refresh", authHandlers.RefreshHandler())
			authenticated.GET("/auth/me", authHandlers.MeHandler())
			authenticated.PUT("/auth/me", authHandlers.UpdateMeHandler())
			authenticated.POST("/invites/:id/accept", inviteHandlers.AcceptInvite)
		}

		// Team-scoped endpoints: every request below resolves to exactly one
		// team and all data access is bounded by it.
		teamScoped := authenticated.Group("")
		teamScoped.Use(middleware.TeamMiddleware(resolver))
		{
			requireAdmin := middleware.RequireAdmin(teamRepo)

			// Team settings and members
			teamScoped.GET("/team", teamHandlers.GetTeam)
			teamScoped.PUT("/team", requireAdmin, teamHandlers.UpdateTeam)
			teamScoped.GET("/team/members", teamHandlers.ListMembers)
			teamScoped.PUT("/team/members/:user_id", requireAdmin, teamHandlers.UpdateMemberRole)
			teamScoped.DELETE("/team/members/:user_id", requireAdmin, teamHandlers.RemoveMember)

			// Invitations (admin only)
			teamScoped.GET("/team/invites", requireAdmin, inviteHandlers.ListInvites)
			teamScoped.POST("/team/invites", requireAdmin, inviteHandlers.CreateInvite)
			teamScoped.DELETE("/team/invites/:id", requireAdmin, inviteHandlers.RevokeInvite)

			// Onboarding wizard
			teamScoped.GET("/onboarding", onboardingHandlers.GetState)
			teamScoped.POST("/onboarding/advance", onboardingHandlers.Advance)
			teamScoped.POST("/onboarding/back", onboardingHandlers.Back)
			teamScoped.POST("/onboarding/jump", onboardingHandlers.Jump)

			// Documents
			teamScoped.GET("/documents", docHandlers.List)
			teamScoped.POST("/documents",
				middleware.RateLimitMiddleware(uploadRateLimiter), // stricter limit for uploads
				docHandlers.Upload)
			teamScoped.GET("/documents/:id", docHandlers.Get)
			teamScoped.PUT("/documents/:id", docHandlers.Update)
			teamScoped.DELETE("/documents/:id", docHandlers.Delete)
			teamScoped.GET("/documents/:id/download", docHandlers.Download)

			// Assets and attachments
			teamScoped.GET("/assets", assetHandlers.List)
			teamScoped.POST("/assets", assetHandlers.Create)
			teamScoped.GET("/assets/summary", assetHandlers.Summary)
			teamScoped.GET("/assets/:id", assetHandlers.Get)
			teamScoped.PUT("/assets/:id", assetHandlers.Update)
			teamScoped.POST("/assets/:id/archive", assetHandlers.Archive)
			teamScoped.GET("/assets/:id/attachments", attHandlers.List)
			teamScoped.POST("/assets/:id/attachments",
				middleware.RateLimitMiddleware(uploadRateLimiter),
				attHandlers.Upload)
			teamScoped.GET("/assets/:id/attachments/:attachment_id/download", attHandlers.Download)
			teamScoped.DELETE("/assets/:id/attachments/:attachment_id", attHandlers.Delete)

			// Contacts
			teamScoped.GET("/contacts", contactHandlers.List)
			teamScoped.POST("/contacts", contactHandlers.Create)
			teamScoped.GET("/contacts/:id", contactHandlers.Get)
			teamScoped.PUT("/contacts/:id", contactHandlers.Update)
			teamScoped.POST("/contacts/:id/archive", contactHandlers.Archive)
			teamScoped.POST("/contacts/:id/unarchive", contactHandlers.Unarchive)

			// Events
			teamScoped.GET("/events", eventHandlers.List)
			teamScoped.POST("/events", eventHandlers.Create)
			teamScoped.GET("/events/:id", eventHandlers.Get)
			teamScoped.PUT("/events/:id", eventHandlers.Update)
			teamScoped.POST("/events/:id/archive", eventHandlers.Archive)

			// Subscriptions
			teamScoped.GET("/subscriptions", subHandlers.List)
			teamScoped.POST("/subscriptions", subHandlers.Create)
			teamScoped.GET("/subscriptions/:id", subHandlers.Get)
			teamScoped.PUT("/subscriptions/:id", subHandlers.Update)
			teamScoped.POST("/subscriptions/:id/archive", subHandlers.Archive)

			// Activity feed
			teamScoped.GET("/activity", activityHandlers.Feed)
		}
	}

	bg := &BackgroundServices{
		renewalNotifier: renewalNotifier,
		recorder:        recorder,
		rateLimiters:    []*middleware.RateLimiter{authRateLimiter, generalRateLimiter, uploadRateLimiter},
	}

	return router, bg
}

// healthCheckHandler returns the liveness status of the service
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/healthz), this also checks the storage backend
// so that a readiness gate fails when uploads and downloads would error.
func readinessHandler(db *sql.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Probe storage with a known-absent sentinel path. Exists() exercises
		// authentication and network connectivity without creating any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured request logging via slog
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// The output format (JSON or text) is decided by the global slog
		// handler configured in telemetry.SetupLogger.
		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS for the browser frontend. Headers are only
// emitted for cross-origin requests (ones carrying an Origin header), and a
// wildcard entry in the allowlist echoes the caller's origin rather than
// sending a literal "*": browsers reject Access-Control-Allow-Origin: * when
// combined with Access-Control-Allow-Credentials.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		if origin != "" {
			for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					allowed = true
					break
				}
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
			c.Header("Vary", "Origin")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
