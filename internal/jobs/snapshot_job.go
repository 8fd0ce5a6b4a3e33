package jobs

import (
	"context"
	"log"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/internal/service"

	"github.com/robfig/cron/v3"
)

// StartScheduler wires the nightly maintenance runs: daily district
// snapshots at midnight local time, plus refresh-token cleanup.
func StartScheduler(geoRepo repository.GeographyRepository, userRepo repository.UserRepository, snapshots service.SnapshotService) *cron.Cron {
	c := cron.New()

	_, err := c.AddFunc("0 0 * * *", func() {
		RunDailySnapshots(context.Background(), geoRepo, snapshots, time.Now())
	})
	if err != nil {
		log.Fatalf("[CRON] failed to schedule snapshot job: %v", err)
	}

	_, err = c.AddFunc("30 0 * * *", func() {
		if err := userRepo.DeleteExpiredRefreshTokens(context.Background(), time.Now()); err != nil {
			log.Printf("[JOB] refresh token cleanup failed: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("[CRON] failed to schedule token cleanup: %v", err)
	}

	c.Start()
	log.Println("[CRON] scheduler started")
	return c
}

// RunDailySnapshots computes a daily snapshot for every district as of
// the given time. Failures are logged per district; one bad district
// does not stop the sweep.
func RunDailySnapshots(ctx context.Context, geoRepo repository.GeographyRepository, snapshots service.SnapshotService, asOf time.Time) {
	districts, err := geoRepo.ListByType(ctx, model.EntityDistrict)
	if err != nil {
		log.Printf("[JOB] failed to list districts: %v", err)
		return
	}

	log.Printf("[JOB] computing daily snapshots for %d districts", len(districts))

	for _, district := range districts {
		_, err := snapshots.ComputeSnapshot(ctx, model.EntityDistrict, district.Code, model.PeriodDaily, asOf)
		if err != nil {
			log.Printf("[JOB] snapshot failed for district %s: %v", district.Code, err)
			continue
		}
	}
}
