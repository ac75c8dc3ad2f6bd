package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "margin/api/swagger" // swagger docs
	"margin/internal/config"
	"margin/internal/database"
	"margin/internal/erp"
	"margin/internal/handler"
	"margin/internal/middleware"
	"margin/internal/notify"
	"margin/internal/repository"
	"margin/internal/service"
	"margin/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Margin API
// @version         1.0
// @description     Tax reference data and contract margin calculation for the iApp ERP.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	stop := make(chan struct{})
	wsHub := websocket.NewHub()
	go wsHub.Run(stop)

	// Repositories
	stateRepo := repository.NewStateRepository(db)
	groupRepo := repository.NewNCMGroupRepository(db)
	ncmRepo := repository.NewNCMRepository(db)
	rateRepo := repository.NewICMSRateRepository(db)
	taxRepo := repository.NewTaxRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	percentageRepo := repository.NewPercentageRepository(db)
	contractRepo := repository.NewContractRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	// Collaborators of the contract pipeline
	var directory notify.RecipientDirectory = notify.NewStaticDirectory(cfg.MarginAdminEmails)
	if cfg.MarginAdminsURL != "" {
		directory = notify.NewHTTPDirectory(cfg.MarginAdminsURL, cfg.HTTPTimeout)
	}
	resolver := service.NewRateResolver(stateRepo, ncmRepo, rateRepo, taxRepo)

	// Services
	stateService := service.NewStateService(stateRepo)
	ncmService := service.NewNCMService(groupRepo, ncmRepo, auditRepo)
	icmsService := service.NewICMSService(rateRepo, stateRepo, groupRepo, txManager, auditRepo)
	taxService := service.NewTaxService(taxRepo, companyRepo, auditRepo)
	companyService := service.NewCompanyService(companyRepo, auditRepo)
	percentageService := service.NewPercentageService(percentageRepo, auditRepo)
	auditService := service.NewAuditService(auditRepo)
	contractService := service.NewContractService(service.ContractDeps{
		Contracts:   contractRepo,
		Companies:   companyRepo,
		Percentages: percentageRepo,
		Audit:       auditRepo,
		TxManager:   txManager,
		Normalizer:  service.NewContractNormalizer(resolver),
		Gateway:     erp.NewClient(cfg.ERPBaseURL, cfg.HTTPTimeout),
		Credentials: erp.NewEnvCredentials(),
		Directory:   directory,
		Notifier:    notify.NewMailer(cfg.SMTP, cfg.ERPWebURL),
		Events:      wsHub,
		ERPWebURL:   cfg.ERPWebURL,
	})

	if err := handler.RegisterValidators(); err != nil {
		log.Fatalf("Could not register validators: %v", err)
	}

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, cfg.JWTSecret)
	})

	api := router.Group("", middleware.RequireAuth(cfg.JWTSecret))
	handler.NewContractHandler(contractService).RegisterRoutes(api)
	handler.NewICMSHandler(stateService, ncmService, icmsService).RegisterRoutes(api)
	handler.NewTaxHandler(taxService).RegisterRoutes(api)
	handler.NewCompanyHandler(companyService).RegisterRoutes(api)
	handler.NewPercentageHandler(percentageService).RegisterRoutes(api)
	handler.NewAuditHandler(auditService).RegisterRoutes(api)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	close(stop)
	log.Println("Server stopped gracefully")
}
