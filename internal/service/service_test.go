package service

import (
	"testing"
	"time"

	"grievance/internal/model"
	"grievance/internal/repository"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// testEnv wires the full service stack against an in-memory database.
// Each test opens its own named shared-cache DB so tests stay isolated.
type testEnv struct {
	db *gorm.DB

	complaintRepo repository.ComplaintRepository
	extensionRepo repository.ExtensionRepository
	snapshotRepo  repository.SnapshotRepository
	geoRepo       repository.GeographyRepository

	events     EventService
	complaints ComplaintService
	extensions ExtensionService
	snapshots  SnapshotService

	admin    model.User
	officer  model.User
	officer2 model.User
	citizen  model.User
}

func setupTestEnv(name string) *testEnv {
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.GeoEntity{},
		&model.Complaint{},
		&model.ComplaintNote{},
		&model.ExtensionRequest{},
		&model.LifecycleEvent{},
		&model.ComplaintSnapshot{},
		&model.CodeCounter{},
	); err != nil {
		panic("failed to migrate test database")
	}

	env := &testEnv{db: db}

	// district D01 → subdistrict S01 → villages V01, V02
	db.Create(&model.GeoEntity{Code: "D01", Name: "North District", Type: model.EntityDistrict})
	db.Create(&model.GeoEntity{Code: "S01", Name: "Central Subdistrict", Type: model.EntitySubdistrict, ParentCode: "D01"})
	db.Create(&model.GeoEntity{Code: "V01", Name: "River Village", Type: model.EntityVillage, ParentCode: "S01"})
	db.Create(&model.GeoEntity{Code: "V02", Name: "Hill Village", Type: model.EntityVillage, ParentCode: "S01"})

	env.admin = model.User{Username: "admin", Email: "admin@example.com", Phone: "0800000001", Password: "x", Role: model.RoleAdmin}
	env.officer = model.User{Username: "officer1", Email: "officer1@example.com", Phone: "0800000002", Password: "x", Role: model.RoleOfficer}
	env.officer2 = model.User{Username: "officer2", Email: "officer2@example.com", Phone: "0800000003", Password: "x", Role: model.RoleOfficer}
	env.citizen = model.User{Username: "citizen1", Email: "citizen1@example.com", Phone: "0800000004", Password: "x", Role: model.RoleCitizen}
	db.Create(&env.admin)
	db.Create(&env.officer)
	db.Create(&env.officer2)
	db.Create(&env.citizen)

	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	env.complaintRepo = repository.NewComplaintRepository(db)
	env.extensionRepo = repository.NewExtensionRepository(db)
	env.snapshotRepo = repository.NewSnapshotRepository(db)
	env.geoRepo = repository.NewGeographyRepository(db)

	env.events = NewEventService(eventRepo, nil)
	env.complaints = NewComplaintService(env.complaintRepo, userRepo, env.geoRepo, env.events, txManager)
	env.extensions = NewExtensionService(env.extensionRepo, env.complaintRepo, env.complaints, env.events, txManager, DefaultExtensionCapDays)
	env.snapshots = NewSnapshotService(env.snapshotRepo, env.complaintRepo, env.geoRepo)

	return env
}

func validCreateRequest() CreateComplaintRequest {
	return CreateComplaintRequest{
		Category:        "water_supply",
		Subject:         "Broken pipe on main road",
		Description:     "Pipe leaking for three days",
		ContactName:     "Somchai P.",
		ContactPhone:    "0812345678",
		DistrictCode:    "D01",
		SubdistrictCode: "S01",
		VillageCode:     "V01",
	}
}

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("invalid uuid %q: %v", s, err)
	}
	return id
}

// seedComplaint inserts a complaint row directly, bypassing the service,
// for aggregation tests that only care about counts.
func seedComplaint(db *gorm.DB, code, villageCode, category, status string, createdAt time.Time) {
	db.Create(&model.Complaint{
		ComplaintCode:   code,
		Category:        category,
		Priority:        model.PriorityMedium,
		Status:          status,
		Subject:         "seeded",
		ContactName:     "seed",
		ContactPhone:    "0800000000",
		DistrictCode:    "D01",
		SubdistrictCode: "S01",
		VillageCode:     villageCode,
		ArrivalTime:     createdAt,
		TimeBoundary:    model.DefaultTimeBoundaryDays,
		Version:         1,
		CreatedAt:       createdAt,
	})
}
