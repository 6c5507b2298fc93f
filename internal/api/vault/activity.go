// activity.go implements the HTTP handler for the team's activity feed.
package vault

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// ActivityHandlers handles the activity feed endpoint
type ActivityHandlers struct {
	activityRepo *repositories.ActivityRepository
}

// NewActivityHandlers creates a new ActivityHandlers instance
func NewActivityHandlers(activityRepo *repositories.ActivityRepository) *ActivityHandlers {
	return &ActivityHandlers{activityRepo: activityRepo}
}

// feedEntry is the API shape of an activity entry, with metadata decoded from
// its stored JSON blob.
type feedEntry struct {
	*models.ActivityEntry
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Feed returns the team's most recent activity entries, newest first
// GET /api/v1/activity?limit=...
func (h *ActivityHandlers) Feed(c *gin.Context) {
	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	entries, err := h.activityRepo.ListByTeam(c.Request.Context(), requestTeamID(c), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load activity"})
		return
	}

	feed := make([]feedEntry, 0, len(entries))
	for _, entry := range entries {
		feed = append(feed, feedEntry{ActivityEntry: entry, Metadata: entry.Metadata})
	}
	c.JSON(http.StatusOK, gin.H{"activity": feed})
}
