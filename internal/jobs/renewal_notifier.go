// renewal_notifier.go implements the RenewalNotifier background job, which
// periodically scans for subscriptions whose next renewal falls within the
// configured notice window and records a reminder in the team's activity
// trail. The job is a no-op when jobs.renewal_reminders is false, so it is
// always safe to start regardless of deployment environment.
package jobs

import (
	"context"
	"log"
	"time"

	"github.com/familyvault/familyvault/internal/activity"
	"github.com/familyvault/familyvault/internal/config"
	"github.com/familyvault/familyvault/internal/db/repositories"
	"github.com/familyvault/familyvault/internal/telemetry"
)

// RenewalNotifier periodically records reminders for upcoming subscription renewals.
type RenewalNotifier struct {
	subRepo  *repositories.SubscriptionRepository
	recorder *activity.Recorder
	cfg      *config.JobsConfig
	interval time.Duration
	stopChan chan struct{}

	// reminded tracks subscriptions already reminded about their current
	// renewal date, keyed by id + renewal timestamp, so restarting the loop is
	// the only way a reminder repeats for the same date.
	reminded map[string]struct{}
}

// NewRenewalNotifier creates a new RenewalNotifier.
// The check interval defaults to 24h.
func NewRenewalNotifier(
	subRepo *repositories.SubscriptionRepository,
	recorder *activity.Recorder,
	cfg *config.JobsConfig,
) *RenewalNotifier {
	hours := cfg.RenewalCheckIntervalHours
	if hours <= 0 {
		hours = 24
	}
	return &RenewalNotifier{
		subRepo:  subRepo,
		recorder: recorder,
		cfg:      cfg,
		interval: time.Duration(hours) * time.Hour,
		stopChan: make(chan struct{}),
		reminded: make(map[string]struct{}),
	}
}

// Start begins the background reminder loop.
// It runs an initial check immediately, then repeats on the configured interval.
// The loop exits when ctx is cancelled or Stop() is called.
func (n *RenewalNotifier) Start(ctx context.Context) {
	if !n.cfg.RenewalReminders {
		log.Println("Renewal notifier: disabled (jobs.renewal_reminders=false)")
		return
	}

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	log.Printf("Renewal notifier started (check interval: %v, notice window: %d days)",
		n.interval, n.noticeDays())

	// Run once immediately on startup
	n.runCheck(ctx)

	for {
		select {
		case <-ticker.C:
			n.runCheck(ctx)
		case <-n.stopChan:
			log.Println("Renewal notifier stopped")
			return
		case <-ctx.Done():
			log.Println("Renewal notifier context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (n *RenewalNotifier) Stop() {
	close(n.stopChan)
}

func (n *RenewalNotifier) noticeDays() int {
	days := n.cfg.RenewalNoticeDays
	if days <= 0 {
		days = 7
	}
	return days
}

// runCheck queries for upcoming renewals and records reminder activity.
func (n *RenewalNotifier) runCheck(ctx context.Context) {
	cutoff := time.Now().Add(time.Duration(n.noticeDays()) * 24 * time.Hour)

	subs, err := n.subRepo.ListRenewingBefore(ctx, cutoff)
	if err != nil {
		log.Printf("Renewal notifier: failed to query renewing subscriptions: %v", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	log.Printf("Renewal notifier: found %d subscription(s) renewing before %s",
		len(subs), cutoff.UTC().Format(time.RFC3339))

	for _, sub := range subs {
		if sub.RenewsAt == nil {
			continue
		}
		key := sub.ID + "@" + sub.RenewsAt.UTC().Format(time.RFC3339)
		if _, done := n.reminded[key]; done {
			continue
		}

		n.recorder.Record(sub.TeamID, nil, "subscription.renewal_due", "subscription", sub.ID, map[string]any{
			"name":         sub.Name,
			"renews_at":    sub.RenewsAt.UTC().Format(time.RFC3339),
			"amount_cents": sub.AmountCents,
			"currency":     sub.Currency,
		})
		telemetry.RenewalRemindersSentTotal.Inc()
		n.reminded[key] = struct{}{}
	}
}
