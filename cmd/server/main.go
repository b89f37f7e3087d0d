package main

import (
	"context"                             // context package is needed for Redis operations
	"log"                                 // log package is needed for logging
	"referral_system/internal/api"        // Custom package for API handlers
	"referral_system/internal/config"     // Custom package for configuration
	"referral_system/internal/metrics"    // Prometheus counters and /metrics handler
	"referral_system/internal/middleware" // Custom package for middleware
	"referral_system/internal/notify"     // Operator notifications

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	// TranslateError maps duplicate-key violations onto gorm.ErrDuplicatedKey
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Setup the Telegram operator notifier, disabled when unconfigured
	tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		logrus.Fatalf("failed to connect to Telegram: %v", err)
	}

	// The admin panel is useless without a password
	if cfg.AdminPassword == "" {
		logrus.Fatal("ADMIN_PASSWORD is not set")
	}

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Account routes (register/login, discriminated by the action field)
	r.POST("/api/account", api.AccountHandler(db, redisClient, cfg.ReferralBonus))

	// Withdrawal route
	r.POST("/api/withdrawals", api.WithdrawalHandler(db, redisClient, cfg.MinWithdrawal, tg))

	// Admin routes (password-gated, rate-limited against password guessing)
	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.RateLimit(5, 10), middleware.AdminPassword(cfg.AdminPassword))
	adminGroup.GET("", api.AdminListUsersHandler(db, redisClient))      // List users endpoint
	adminGroup.POST("", api.AdminMutateBalanceHandler(db, redisClient)) // Balance mutation endpoint

	// Prometheus metrics
	r.GET("/metrics", metrics.Handler())

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
