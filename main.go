package main

import (
	"context"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"time"

	"github.com/carpal-dk/backoffice/src/config"
	"github.com/carpal-dk/backoffice/src/database"
	"github.com/carpal-dk/backoffice/src/handlers"
	"github.com/carpal-dk/backoffice/src/logger"
	"github.com/carpal-dk/backoffice/src/security"
	"github.com/carpal-dk/backoffice/src/services"
	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag, Content-Disposition")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("CarPal backoffice server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	if err := database.InitDB(config.Cfg.DatabasePath); err != nil {
		logger.L.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing services and handlers...")
	authService := security.NewAuthService(config.Cfg.JWTSecret)
	emailService := services.NewEmailService()

	crmClient := services.NewZohoClient()
	bilinfoClient := services.NewBilinfoClient()
	screenshotClient := services.NewScreenshotClient()
	deskClient := services.NewDeskClient()
	plateClient := services.NewPlateClient()

	contractService := services.NewContractService(emailService)
	consistencyService := services.NewConsistencyService(bilinfoClient)
	sessionManager := services.NewSessionManager(
		config.Cfg.SessionExpiry, crmClient, contractService, screenshotClient,
		config.Cfg.ScreenshotPollDelay,
	)

	authHandler := handlers.NewAuthHandler(authService)
	contractHandler := handlers.NewContractHandler(sessionManager, crmClient, screenshotClient)
	bilinfoHandler := handlers.NewBilinfoHandler(bilinfoClient, consistencyService)
	deskHandler := handlers.NewDeskHandler(deskClient, contractService)
	plateHandler := handlers.NewPlateHandler(plateClient)
	fieldsHandler := handlers.NewFieldsHandler(crmClient)

	logger.L.Info("Scheduling consistency sweep", "cron", config.Cfg.ConsistencyCronSpec)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(config.Cfg.ConsistencyCronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		if _, err := consistencyService.RunSweep(ctx); err != nil {
			logger.L.Error("Scheduled consistency sweep failed", "error", err)
		}
	}); err != nil {
		logger.L.Error("Failed to schedule consistency sweep", "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()

	rootMux.HandleFunc("POST /api/auth/login", authHandler.LoginHandler)

	withAuth := func(handler http.HandlerFunc) http.Handler {
		return authHandler.AuthMiddleware(handler)
	}

	// Contract session flow
	rootMux.Handle("POST /contracts/api/sessions", withAuth(contractHandler.CreateSessionHandler))
	rootMux.Handle("GET /contracts/api/sessions/{sessionId}", withAuth(contractHandler.GetSessionHandler))
	rootMux.Handle("DELETE /contracts/api/sessions/{sessionId}", withAuth(contractHandler.DeleteSessionHandler))
	rootMux.Handle("POST /contracts/api/sessions/{sessionId}/load", withAuth(contractHandler.LoadDealHandler))
	rootMux.Handle("POST /contracts/api/sessions/{sessionId}/step", withAuth(contractHandler.StepHandler))
	rootMux.Handle("PATCH /contracts/api/sessions/{sessionId}/fields", withAuth(contractHandler.SetFieldHandler))
	rootMux.Handle("POST /contracts/api/sessions/{sessionId}/messages", withAuth(contractHandler.SetMessagesHandler))
	rootMux.Handle("POST /contracts/api/sessions/{sessionId}/extras", withAuth(contractHandler.AddExtraHandler))
	rootMux.Handle("PATCH /contracts/api/sessions/{sessionId}/extras/{index}", withAuth(contractHandler.UpdateExtraHandler))
	rootMux.Handle("DELETE /contracts/api/sessions/{sessionId}/extras/{index}", withAuth(contractHandler.RemoveExtraHandler))
	rootMux.Handle("POST /contracts/api/sessions/{sessionId}/send", withAuth(contractHandler.SendContractHandler))
	rootMux.Handle("GET /contracts/api/jobs/{jobId}", withAuth(contractHandler.JobStatusHandler))

	rootMux.Handle("POST /contracts/api/deal/lookup", withAuth(contractHandler.LookupDealHandler))
	rootMux.Handle("GET /contracts/api/deal/{id}", withAuth(contractHandler.GetDealHandler))

	rootMux.Handle("POST /contracts/api/attachments/upload", withAuth(contractHandler.UploadAttachmentHandler))
	rootMux.Handle("DELETE /contracts/api/attachments/upload", withAuth(contractHandler.DeleteAttachmentHandler))
	rootMux.Handle("GET /contracts/api/screenshot/{ref}", withAuth(contractHandler.ScreenshotHandler))
	rootMux.Handle("DELETE /contracts/api/screenshot/{ref}", withAuth(contractHandler.DeleteScreenshotHandler))

	// Back-office tools. The bilinfo dashboard carries its own shared-secret
	// auth; the rest sits behind the dashboard token.
	rootMux.HandleFunc("GET /api/bilinfo/dashboard", bilinfoHandler.DashboardHandler)
	rootMux.HandleFunc("POST /api/bilinfo/dashboard", bilinfoHandler.DashboardHandler)
	rootMux.Handle("GET /api/v1/desk/ticket", withAuth(deskHandler.TicketHandler))
	rootMux.Handle("GET /api/v1/nummerpladetjek/{plate}", withAuth(plateHandler.LookupHandler))
	rootMux.Handle("GET /api/v1/zoho/modules", withAuth(fieldsHandler.ModulesHandler))
	rootMux.Handle("GET /api/v1/zoho/modules/{module}/fields", withAuth(fieldsHandler.ModuleFieldsHandler))

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "CarPal backoffice is running"})
			return
		}
		logger.L.Warn("Path not found", "method", r.Method, "path", r.URL.Path)
		http.NotFound(w, r)
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
