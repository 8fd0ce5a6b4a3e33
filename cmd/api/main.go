package main

import (
	"log"
	"os"
	"strconv"

	_ "grievance/api/swagger" // swagger docs
	"grievance/internal/database"
	"grievance/internal/handler"
	"grievance/internal/jobs"
	"grievance/internal/middleware"
	"grievance/internal/repository"
	"grievance/internal/service"
	"grievance/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Grievance Lifecycle API
// @version         1.0
// @description     Citizen complaint intake, lifecycle tracking, deadline extensions and trend snapshots.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	geoRepo := repository.NewGeographyRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	extensionRepo := repository.NewExtensionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	userService := service.NewUserService(userRepo)
	eventService := service.NewEventService(eventRepo, wsHub)
	complaintService := service.NewComplaintService(complaintRepo, userRepo, geoRepo, eventService, txManager)
	extensionCap := service.DefaultExtensionCapDays
	if raw := os.Getenv("EXTENSION_MAX_DAYS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			extensionCap = parsed
		}
	}
	extensionService := service.NewExtensionService(extensionRepo, complaintRepo, complaintService, eventService, txManager, extensionCap)
	snapshotService := service.NewSnapshotService(snapshotRepo, complaintRepo, geoRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	complaintHandler := handler.NewComplaintHandler(complaintService, eventService)
	extensionHandler := handler.NewExtensionHandler(extensionService)
	snapshotHandler := handler.NewSnapshotHandler(snapshotService)

	// Nightly district snapshots and token cleanup
	jobs.StartScheduler(geoRepo, userRepo, snapshotService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for lifecycle event fan-out
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	userHandler.RegisterRoutes(router.Group(""))
	complaintHandler.RegisterRoutes(router.Group(""))
	extensionHandler.RegisterRoutes(router.Group(""))
	snapshotHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
