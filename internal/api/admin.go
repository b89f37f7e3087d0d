package api

import (
	"context"                          // Context for Redis operations
	"net/http"                         // HTTP status codes
	"referral_system/internal/domain"  // Importing domain models
	"referral_system/internal/metrics" // Business event counters
	"referral_system/internal/utils"   // Cache helpers
	"time"                             // Cache TTL

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// Admin actions on the balance mutation endpoint
const (
	ActionUpdateBalance = "update_balance" // Apply a signed delta
	ActionSetBalance    = "set_balance"    // Overwrite with an absolute value
)

// AdminMutationRequest is the discriminated body of the admin POST endpoint.
// The password field is consumed by the AdminPassword middleware.
type AdminMutationRequest struct {
	Action   string   `json:"action" binding:"required"` // update_balance or set_balance
	Password string   `json:"password"`                  // Bearer password, checked by middleware
	UserID   uint     `json:"user_id"`                   // Target user
	Amount   *float64 `json:"amount"`                    // Signed delta, update_balance only
	Balance  *float64 `json:"balance"`                   // Absolute value, set_balance only
}

// AdminListUsersHandler returns all users for the admin panel, newest first
func AdminListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background() // Context for Redis operations
		var cached []UserResponse   // Cached listing
		// Try the cache first
		found, err := utils.GetCache(ctx, rdb, utils.AdminUsersKey, &cached)
		if err == nil && found {
			// Return the cached listing
			c.JSON(http.StatusOK, gin.H{"success": true, "users": cached})
			return
		}
		var users []domain.User // Slice to hold users
		// Fetch all users, newest first
		if err := db.Order("created_at desc").Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Не удалось загрузить пользователей"})
			return
		}
		// Map users onto the wire snapshot, including registration time
		resp := make([]UserResponse, len(users))
		for i, u := range users {
			resp[i] = toUserResponse(u, true)
		}
		// Cache the listing, mutations invalidate it
		_ = utils.SetCache(ctx, rdb, utils.AdminUsersKey, resp, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"success": true, "users": resp}) // Return the listing
	}
}

// AdminMutateBalanceHandler applies an admin balance mutation. The delta
// and the absolute set are both computed server-side, the panel never
// does balance arithmetic itself.
func AdminMutateBalanceHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AdminMutationRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
			return
		}
		// Dispatch on the action discriminator
		switch req.Action {
		case ActionUpdateBalance:
			// A target user and a delta are required
			if req.UserID == 0 || req.Amount == nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "User ID и сумма обязательны"})
				return
			}
			// Apply the signed delta on the server
			mutateBalance(c, db, rdb, req.UserID, req.Action, gorm.Expr("balance + ?", *req.Amount))
		case ActionSetBalance:
			// A target user and an absolute value are required
			if req.UserID == 0 || req.Balance == nil {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "User ID и баланс обязательны"})
				return
			}
			// Overwrite the balance
			mutateBalance(c, db, rdb, req.UserID, req.Action, *req.Balance)
		default:
			// Unknown action, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid action"})
		}
	}
}

// mutateBalance updates one user's balance and returns the fresh snapshot
func mutateBalance(c *gin.Context, db *gorm.DB, rdb *redis.Client, userID uint, action string, value any) {
	var user domain.User // Fetch the target user
	if err := db.First(&user, userID).Error; err != nil {
		// If user not found, return not found
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Пользователь не найден"})
		return
	}
	// Apply the mutation
	if err := db.Model(&user).Update("balance", value).Error; err != nil {
		// Log the error with context
		logrus.WithFields(logrus.Fields{
			"user_id": userID,      // Target user
			"action":  action,      // Mutation kind
			"error":   err.Error(), // Error message
		}).Error("Admin balance mutation failed") // Log mutation failure
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Не удалось изменить баланс"})
		return
	}
	// Re-read for the authoritative value
	if err := db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Не удалось изменить баланс"})
		return
	}
	// Log the mutation
	logrus.WithFields(logrus.Fields{
		"user_id": userID,       // Target user
		"action":  action,       // Mutation kind
		"balance": user.Balance, // Resulting balance
	}).Info("Admin balance mutation") // Log mutation
	metrics.AdminBalanceOps.WithLabelValues(action).Inc() // Count the mutation
	// The cached listing is now stale
	_ = utils.DeleteCache(context.Background(), rdb, utils.AdminUsersKey)
	// Return the fresh snapshot
	c.JSON(http.StatusOK, gin.H{"success": true, "user": toUserResponse(user, false)})
}
