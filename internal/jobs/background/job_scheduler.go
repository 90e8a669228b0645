package background

import (
	"context"
	"log"
	"time"

	"github.com/caldana20/referral-sys/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler runs the periodic maintenance jobs: retrying failed
// notification deliveries and keeping the tenant host cache warm.
type JobScheduler struct {
	scheduler       gocron.Scheduler
	notificationSvc services.NotificationService
	resolver        services.TenantResolver
}

func NewJobScheduler(notificationSvc services.NotificationService, resolver services.TenantResolver) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:       scheduler,
		notificationSvc: notificationSvc,
		resolver:        resolver,
	}
	js.registerJobs()

	return js, nil
}

func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	// Retry failed notification deliveries every 2 minutes
	_, err := js.scheduler.NewJob(
		gocron.DurationJob(2*time.Minute),
		gocron.NewTask(js.retryFailedNotifications),
		gocron.WithName("notification-retry"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create notification retry job: %v", err)
	}

	// Re-warm the host-to-tenant cache slightly inside its TTL so steady
	// traffic never takes the database lookup path
	_, err = js.scheduler.NewJob(
		gocron.DurationJob(4*time.Minute),
		gocron.NewTask(js.warmTenantHostCache),
		gocron.WithName("tenant-host-cache-warm"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create cache warm job: %v", err)
	}
}

func (js *JobScheduler) retryFailedNotifications() {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	if retried := js.notificationSvc.RetryFailed(ctx); retried > 0 {
		log.Printf("Retried %d failed notification deliveries", retried)
	}
}

func (js *JobScheduler) warmTenantHostCache() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := js.resolver.WarmCache(ctx); err != nil {
		log.Printf("Tenant host cache warm failed: %v", err)
	}
}
