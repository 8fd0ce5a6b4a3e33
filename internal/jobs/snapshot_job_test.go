package jobs

import (
	"context"
	"testing"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"
	"grievance/internal/service"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupJobTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file:snapshot_job?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	if err := db.AutoMigrate(
		&model.GeoEntity{},
		&model.Complaint{},
		&model.ComplaintSnapshot{},
	); err != nil {
		panic("failed to migrate test database")
	}
	return db
}

func TestRunDailySnapshots(t *testing.T) {
	db := setupJobTestDB()
	ctx := context.Background()

	db.Create(&model.GeoEntity{Code: "D01", Name: "North", Type: model.EntityDistrict})
	db.Create(&model.GeoEntity{Code: "D02", Name: "South", Type: model.EntityDistrict})
	db.Create(&model.GeoEntity{Code: "S01", Name: "Central", Type: model.EntitySubdistrict, ParentCode: "D01"})
	db.Create(&model.GeoEntity{Code: "V01", Name: "River", Type: model.EntityVillage, ParentCode: "S01"})

	db.Create(&model.Complaint{
		ComplaintCode:   "GRV-JOB-00001",
		Category:        "water_supply",
		Priority:        model.PriorityMedium,
		Status:          model.StatusPending,
		Subject:         "seeded",
		ContactName:     "seed",
		ContactPhone:    "0800000000",
		DistrictCode:    "D01",
		SubdistrictCode: "S01",
		VillageCode:     "V01",
		ArrivalTime:     time.Now(),
		TimeBoundary:    model.DefaultTimeBoundaryDays,
		Version:         1,
	})

	geoRepo := repository.NewGeographyRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	snapshots := service.NewSnapshotService(snapshotRepo, complaintRepo, geoRepo)

	RunDailySnapshots(ctx, geoRepo, snapshots, time.Now().Add(time.Hour))

	// one snapshot per district, even the empty one
	rows, total, err := snapshots.List(ctx, model.EntityDistrict, "", model.PeriodDaily, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), total)

	byCode := make(map[string]int64)
	for _, row := range rows {
		byCode[row.EntityCode] = row.TotalCount
	}
	assert.Equal(t, int64(1), byCode["D01"])
	assert.Equal(t, int64(0), byCode["D02"])
}
