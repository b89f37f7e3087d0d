package api

import (
	"context"                          // Context for Redis operations
	"errors"                           // Error classification
	"fmt"                              // Referral code formatting
	"net/http"                         // HTTP status codes
	"referral_system/internal/domain"  // Importing domain models
	"referral_system/internal/metrics" // Business event counters
	"referral_system/internal/utils"   // Cache helpers
	"time"                             // Timestamp formatting

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"golang.org/x/crypto/bcrypt"   // Password hashing
	"gorm.io/gorm"                 // GORM ORM library
)

// Account actions. The endpoint is discriminated by an `action` field
// for wire compatibility with the existing promo front-end.
const (
	ActionRegister = "register" // Create an account
	ActionLogin    = "login"    // Authenticate an existing account
)

// AccountRequest is the discriminated request body of the account endpoint
type AccountRequest struct {
	Action       string `json:"action" binding:"required"` // register or login
	Email        string `json:"email"`                     // Login email
	Password     string `json:"password"`                  // Plain password, hashed server-side
	FullName     string `json:"full_name"`                 // Display name, register only
	ReferralCode string `json:"referral_code"`             // Optional code of the referrer, register only
}

// UserResponse is the user snapshot returned to clients
type UserResponse struct {
	ID            uint    `json:"id"`                       // Server-assigned id
	Email         string  `json:"email"`                    // Login email
	FullName      string  `json:"full_name"`                // Display name
	Balance       float64 `json:"balance"`                  // Current bonus balance
	ReferralCount int     `json:"referral_count"`           // Number of referred signups
	ReferralCode  string  `json:"referral_code,omitempty"`  // Code for the shareable link
	CreatedAt     string  `json:"created_at,omitempty"`     // Registration time, admin listing only
}

// toUserResponse maps a domain user onto the wire snapshot
func toUserResponse(u domain.User, withCreatedAt bool) UserResponse {
	resp := UserResponse{
		ID:            u.ID,            // Server-assigned id
		Email:         u.Email,         // Login email
		FullName:      u.FullName,      // Display name
		Balance:       u.Balance,       // Current bonus balance
		ReferralCount: u.ReferralCount, // Number of referred signups
		ReferralCode:  u.ReferralCode,  // Code for the shareable link
	}
	// Older rows predate referral codes, derive the canonical one from the id
	if resp.ReferralCode == "" {
		resp.ReferralCode = ReferralCode(u.ID)
	}
	if withCreatedAt {
		resp.CreatedAt = u.CreatedAt.Format(time.RFC3339) // Registration time for the admin listing
	}
	return resp
}

// ReferralCode derives the canonical referral code for a user id
func ReferralCode(id uint) string {
	return fmt.Sprintf("REF%06d", id) // Fixed REF###### format
}

// AccountHandler dispatches the discriminated account endpoint
func AccountHandler(db *gorm.DB, rdb *redis.Client, referralBonus float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AccountRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
			return
		}
		// Dispatch on the action discriminator
		switch req.Action {
		case ActionRegister:
			registerAccount(c, db, rdb, req, referralBonus) // Create an account
		case ActionLogin:
			loginAccount(c, db, req) // Authenticate
		default:
			// Unknown action, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid action"})
		}
	}
}

// registerAccount creates a user and credits the referrer when a referral code was supplied
func registerAccount(c *gin.Context, db *gorm.DB, rdb *redis.Client, req AccountRequest, referralBonus float64) {
	// All three fields are required
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Все поля обязательны"})
		return
	}
	// Hash the password
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		// If hashing fails, return internal server error
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Не удалось зарегистрироваться"})
		return
	}
	user := domain.User{Email: req.Email, Password: string(hash), FullName: req.FullName}
	referred := false // Whether a referrer was credited
	// Create the user, assign its referral code and credit the referrer atomically
	err = db.Transaction(func(tx *gorm.DB) error {
		// Insert the user row
		if err := tx.Create(&user).Error; err != nil {
			return err // Return error to rollback
		}
		// The referral code derives from the assigned id
		user.ReferralCode = ReferralCode(user.ID)
		if err := tx.Model(&user).Update("referral_code", user.ReferralCode).Error; err != nil {
			return err // Return error to rollback
		}
		// Credit the referrer when a foreign referral code was supplied
		if req.ReferralCode != "" && req.ReferralCode != user.ReferralCode {
			var referrer domain.User
			// Unknown codes are ignored, registration still succeeds
			if err := tx.Where("referral_code = ?", req.ReferralCode).First(&referrer).Error; err == nil {
				// Bonus and referral count move together on the referrer's row
				if err := tx.Model(&referrer).Updates(map[string]any{
					"balance":        gorm.Expr("balance + ?", referralBonus),  // Credit the bonus
					"referral_count": gorm.Expr("referral_count + 1"),          // Count the signup
				}).Error; err != nil {
					return err // Return error to rollback
				}
				referred = true // Referrer credited
			}
		}
		return nil // Commit transaction
	})
	// Handle transaction result
	if err != nil {
		// The unique index on email turns a concurrent duplicate into a
		// constraint violation inside the transaction
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email уже зарегистрирован"})
			return
		}
		// Log the error with context
		logrus.WithFields(logrus.Fields{
			"email": req.Email,   // Requested email
			"error": err.Error(), // Error message
		}).Error("Registration failed") // Log registration failure
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Не удалось зарегистрироваться"})
		return
	}
	// Log successful registration
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,  // New user id
		"email":    user.Email, // Login email
		"referred": referred, // Whether a referrer was credited
	}).Info("User registered") // Log registration
	metrics.RegisteredUsers.WithLabelValues(boolLabel(referred)).Inc() // Count the registration
	// The admin listing gained a row, and a credited referrer changed balance
	_ = utils.DeleteCache(context.Background(), rdb, utils.AdminUsersKey)
	// Return the full snapshot the client adopts verbatim
	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user, false)})
}

// loginAccount verifies credentials and returns the current snapshot
func loginAccount(c *gin.Context, db *gorm.DB, req AccountRequest) {
	// Both fields are required
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Email и пароль обязательны"})
		return
	}
	var user domain.User // Fetch user from database
	if err := db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		// If user not found, return unauthorized
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Неверный email или пароль"})
		return
	}
	// Compare provided password with stored hash
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Неверный email или пароль"})
		return
	}
	metrics.Logins.Inc() // Count the login
	// Return the full snapshot the client adopts verbatim
	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user, false)})
}

// boolLabel renders a bool as a prometheus label value
func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
