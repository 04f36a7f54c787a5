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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/livequiz-api/internal/config"
	"github.com/yourusername/livequiz-api/internal/handler"
	"github.com/yourusername/livequiz-api/internal/middleware"
	pgRepo "github.com/yourusername/livequiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/livequiz-api/internal/repository/redis"
	"github.com/yourusername/livequiz-api/internal/service"
	"github.com/yourusername/livequiz-api/internal/service/quizrunner"
	ws "github.com/yourusername/livequiz-api/internal/websocket"
	"github.com/yourusername/livequiz-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	quizRepo := pgRepo.NewQuizRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	responseRepo := pgRepo.NewResponseRepo(db)
	leaderboardRepo := pgRepo.NewLeaderboardRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализация WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	wsManager := ws.NewManager(wsHub)

	// Уведомления о завершении викторин: Resend, если включены, иначе заглушка
	var notifier quizrunner.CompletionNotifier = &service.NoopNotifier{}
	if cfg.Notifications.Enabled {
		resendNotifier, errNotif := service.NewResendNotifier(
			cfg.Notifications.ResendAPIKey,
			cfg.Notifications.From,
			cfg.Notifications.To,
		)
		if errNotif != nil {
			log.Printf("Failed to initialize Resend notifier: %v. Уведомления будут отключены.", errNotif)
		} else {
			log.Println("Resend notifier успешно инициализирован")
			notifier = resendNotifier
		}
	}

	// Конфигурация движка живых викторин из настроек приложения
	quizConfig := quizrunner.DefaultConfig()
	quizConfig.CountdownSeconds = cfg.Quiz.CountdownSeconds
	quizConfig.LeaderboardSeconds = cfg.Quiz.LeaderboardSeconds
	quizConfig.TopN = cfg.Quiz.TopN
	quizConfig.SchedulerInterval = time.Duration(cfg.Quiz.SchedulerIntervalSec) * time.Second

	// Инициализируем сервисы
	quizService := service.NewQuizService(quizRepo, questionRepo)
	liveQuizService := service.NewLiveQuizService(
		quizRepo,
		questionRepo,
		responseRepo,
		leaderboardRepo,
		cacheRepo,
		wsManager,
		notifier,
		quizConfig,
	)

	// Инициализируем обработчики
	quizHandler := handler.NewQuizHandler(quizService, liveQuizService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, liveQuizService, cfg.Server.AllowedOrigins)

	// Инициализируем rate limiter
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	// В production (GIN_MODE=release): не доверяем прокси (защита от IP spoofing)
	// В development: доверяем localhost
	// При деплое на VM с load balancer: добавьте IP балансировщика в список
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	api.Use(rateLimiter.LimitByIP(middleware.DefaultAPIRateLimitConfig()))
	{
		quizzes := api.Group("/quizzes")
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.GET("/active", quizHandler.GetActiveQuiz)

			// Управляющие endpoints с более строгим лимитом
			quizzes.POST("", rateLimiter.LimitByIP(middleware.AdminRateLimitConfig()), quizHandler.CreateQuiz)

			// Группа маршрутов, требующих quizID
			quizWithID := quizzes.Group("/:id")
			quizWithID.Use(middleware.ExtractUintParam("id", "quizID"))
			{
				quizWithID.GET("", quizHandler.GetQuiz)
				quizWithID.GET("/state", quizHandler.GetQuizState)
				quizWithID.GET("/leaderboard", quizHandler.GetLeaderboard)
				quizWithID.GET("/leaderboard/export", quizHandler.ExportLeaderboard)

				adminQuiz := quizWithID.Group("")
				adminQuiz.Use(rateLimiter.LimitByIP(middleware.AdminRateLimitConfig()))
				{
					adminQuiz.POST("/questions", quizHandler.AddQuestions)
					adminQuiz.POST("/start", quizHandler.StartQuiz)
					adminQuiz.DELETE("", quizHandler.DeleteQuiz)
				}
			}
		}
	}

	// WebSocket маршрут
	router.GET("/ws", rateLimiter.LimitByIP(middleware.WSConnectRateLimitConfig()), wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// После получения сигнала SIGINT или SIGTERM останавливаем
	// планировщик, активные сессии и сам HTTP сервер
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем движок викторин (планировщик и горутины сессий)
	liveQuizService.Shutdown()

	// Закрываем все WebSocket соединения
	wsHub.Close()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
