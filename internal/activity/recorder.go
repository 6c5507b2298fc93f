// recorder.go implements the asynchronous activity recorder. Recording is
// strictly best-effort: a failed insert or ship is logged and counted but
// never surfaced to the caller, so the primary operation always wins.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/familyvault/familyvault/internal/db/models"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/safego"
	"github.com/familyvault/familyvault/internal/telemetry"
)

// recordTimeout bounds each async write so a stalled database or webhook
// cannot leak goroutines indefinitely.
const recordTimeout = 5 * time.Second

// Recorder writes activity entries to the database and forwards copies to the
// configured shippers, off the request path.
type Recorder struct {
	repo     *repositories.ActivityRepository
	shippers []Shipper
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder. shippers may be empty.
func NewRecorder(repo *repositories.ActivityRepository, shippers []Shipper) *Recorder {
	return &Recorder{repo: repo, shippers: shippers}
}

// Record logs an action asynchronously and returns immediately.
func (r *Recorder) Record(teamID string, userID *string, action, resourceType, resourceID string, metadata map[string]any) {
	r.wg.Add(1)
	safego.Go(func() {
		defer r.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		var metadataJSON []byte
		if len(metadata) > 0 {
			if data, err := json.Marshal(metadata); err == nil {
				metadataJSON = data
			}
		}

		entry := &models.ActivityEntry{
			TeamID:       teamID,
			UserID:       userID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Metadata:     metadataJSON,
		}
		if err := r.repo.Insert(ctx, entry); err != nil {
			telemetry.ActivityShipErrorsTotal.WithLabelValues("db").Inc()
			slog.Error("failed to record activity", "action", action, "team_id", teamID, "error", err)
		} else {
			telemetry.ActivityEntriesRecordedTotal.Inc()
		}

		if len(r.shippers) == 0 {
			return
		}

		wire := &Entry{
			Timestamp:    entry.CreatedAt,
			TeamID:       teamID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Metadata:     metadata,
		}
		if wire.Timestamp.IsZero() {
			wire.Timestamp = time.Now().UTC()
		}
		if userID != nil {
			wire.UserID = *userID
		}
		for _, shipper := range r.shippers {
			if err := shipper.Ship(ctx, wire); err != nil {
				telemetry.ActivityShipErrorsTotal.WithLabelValues(shipper.Name()).Inc()
				slog.Error("failed to ship activity entry", "sink", shipper.Name(), "error", err)
			}
		}
	})
}

// Close waits for in-flight records and closes the shippers. Called during
// graceful shutdown so the last mutations still make it into the trail.
func (r *Recorder) Close() error {
	r.wg.Wait()
	var lastErr error
	for _, shipper := range r.shippers {
		if err := shipper.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
