package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"session-web-server/config"
	_ "session-web-server/docs"
	"session-web-server/internal/handler"
	"session-web-server/internal/notifier"
	"session-web-server/internal/repository"
	"session-web-server/internal/security"
	"session-web-server/internal/service"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Session-web-server
// @version 1.0
// @description REST API жизненного цикла сессий: выпуск, проверка, ротация и отзыв пары access/refresh токенов

// @host localhost:8080

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		log.Fatalf("Не удалось подключиться к БД: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Ошибка при закрытии БД: %v", err)
		}
	}()

	redisClient, err := config.SetupRedis(&cfg.RedisConfig)
	if err != nil {
		log.Fatalf("Ошибка подключения к Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Ошибка при закрытии Redis: %v", err)
		}
	}()

	srv, router := config.SetupServer(cfg.ServerAddr)

	jwtService, err := security.NewJWTService(&cfg.JWT)
	if err != nil {
		log.Fatalf("Ошибка конфигурации JWT: %v", err)
	}
	refreshTokenTTL, err := time.ParseDuration(cfg.JWT.RefreshTokenTTL)
	if err != nil {
		log.Fatalf("Ошибка парсинга refresh_token_ttl: %v", err)
	}
	csrfService, err := security.NewCSRFService(&cfg.CSRF)
	if err != nil {
		log.Fatalf("Ошибка конфигурации CSRF: %v", err)
	}
	refreshHasher := security.NewRefreshHasher(cfg.JWT.CryptoSecret)

	resetNotifier, err := notifier.NewWebhookNotifier(&cfg.Notifier)
	if err != nil {
		log.Fatalf("Ошибка конфигурации notifier: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	resetCacheRepo := repository.NewResetCacheRepository(redisClient)

	authService := service.NewAuthenticationService(userRepo, jwtService, refreshHasher, resetCacheRepo, resetNotifier)
	authHandler := handler.NewAuthenticationHandler(authService, csrfService, refreshTokenTTL)

	router.Get("/swagger/*", httpSwagger.WrapHandler)

	setupAuthRoutes(router, authHandler, jwtService, csrfService, refreshHasher, userRepo)

	runServer(ctx, srv)
}

func setupAuthRoutes(
	r chi.Router,
	h *handler.AuthenticationHandler,
	jwtService *security.JWTService,
	csrfService *security.CSRFService,
	refreshHasher *security.RefreshHasher,
	userRepo *repository.UserRepository,
) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Put("/register", h.Register)
		r.Get("/csrf-token", h.GetCSRFToken)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Post("/reset-password", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(security.LocalCredentialGuard(userRepo))
			r.Post("/sign-in", h.SignIn)
		})

		// ротация и выход требуют валидный CSRF токен в дополнение
		// к refresh токену: оба endpoint-а опираются на cookie
		r.Group(func(r chi.Router) {
			r.Use(security.CSRFGuard(csrfService))
			r.Use(security.RefreshGuard(jwtService, refreshHasher, userRepo))
			r.Get("/verify-token", h.VerifyToken)
			r.Post("/sign-out", h.SignOut)
		})

		r.Group(func(r chi.Router) {
			r.Use(security.AccessGuard(jwtService))
			r.Get("/me", h.GetCurrentUser)
		})
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("сервер запущен на " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil {
			log.Fatalf("ошибка работы сервера: %v", err)
		}
	case sig := <-signalChannel:
		log.Printf("получен сигнал %v остановки работы сервера ", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		log.Printf("ошибка при остановке сервера: %v", err)
	} else {
		log.Println("Сервер успешно остановлен")
	}
}
