package config

import (
	"os"      // For environment variables
	"strconv" // For string to number conversion

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort        string  // Application port
	DBUser         string  // Database user
	DBPassword     string  // Database password
	DBHost         string  // Database host
	DBPort         string  // Database port
	DBName         string  // Database name
	RedisAddr      string  // Redis server address
	RedisPass      string  // Redis password
	RedisDB        int     // Redis database number
	AdminPassword  string  // Static admin panel password (bearer credential on every admin call)
	MinWithdrawal  float64 // Minimum withdrawal amount
	ReferralBonus  float64 // Bonus credited to the referrer per signup
	TelegramToken  string  // Bot token for operator notifications, empty disables them
	TelegramChatID int64   // Chat that receives operator notifications
	IsProd         bool    // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	return &Config{
		AppPort:        os.Getenv("APP_PORT"),          // Application port
		DBUser:         os.Getenv("DB_USER"),           // Database user
		DBPassword:     os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:         os.Getenv("DB_HOST"),           // Database host
		DBPort:         os.Getenv("DB_PORT"),           // Database port
		DBName:         os.Getenv("DB_NAME"),           // Database name
		RedisAddr:      os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:      os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:        redisDB,                        // Redis database number
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),    // Admin panel password
		MinWithdrawal:  envFloat("MIN_WITHDRAWAL", 100), // Minimum withdrawal amount
		ReferralBonus:  envFloat("REFERRAL_BONUS", 500), // Referral bonus per signup
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),    // Telegram bot token
		TelegramChatID: chatID,                         // Telegram operator chat
		IsProd:         os.Getenv("IS_PROD") == "true", // Is production environment
	}
}

// envFloat reads a float environment variable with a fallback
func envFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v // Use the configured value
	}
	return fallback // Fall back to the default
}
