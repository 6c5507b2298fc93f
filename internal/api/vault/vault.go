// Package vault implements the HTTP handlers for team-scoped resources:
// documents, assets, attachments, contacts, events, subscriptions, and the
// activity feed. Every handler runs behind the auth and team middleware, so a
// resolved team id is always present and all repository calls are scoped to it.
package vault

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/middleware"
)

// requestTeamID reads the team id resolved by the team middleware.
func requestTeamID(c *gin.Context) string {
	return middleware.TeamID(c)
}

// actorID returns the authenticated user id as a pointer for activity records.
func actorID(c *gin.Context) *string {
	id := c.GetString(middleware.UserIDContextKey)
	if id == "" {
		return nil
	}
	return &id
}

// pageParams reads the limit and offset query parameters for listing
// endpoints. On a malformed value it writes a 400 response and returns false;
// absent parameters leave the zero Page, which the repositories resolve to the
// first default-sized page.
func pageParams(c *gin.Context) (repositories.Page, bool) {
	var page repositories.Page
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return page, false
		}
		page.Limit = n
	}
	if raw := c.Query("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return page, false
		}
		page.Offset = n
	}
	return page, true
}
