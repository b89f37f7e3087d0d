package api

import (
	"context"                          // Context for Redis operations
	"fmt"                              // Error message formatting
	"net/http"                         // HTTP status codes
	"referral_system/internal/domain"  // Importing domain models
	"referral_system/internal/metrics" // Business event counters
	"referral_system/internal/notify"  // Operator notifications
	"referral_system/internal/utils"   // Cache helpers
	"strings"                          // Payment details trimming

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// WithdrawalRequest represents a withdrawal request
type WithdrawalRequest struct {
	UserID         uint    `json:"user_id" binding:"required"` // Requesting user
	Amount         float64 `json:"amount" binding:"required"`  // Requested amount
	PaymentMethod  string  `json:"payment_method"`             // Payment method, defaults to card
	PaymentDetails string  `json:"payment_details"`            // Free-text payout details
}

// WithdrawalHandler accepts a withdrawal request, reserves the amount and
// queues it for manual processing by the operator
func WithdrawalHandler(db *gorm.DB, rdb *redis.Client, minAmount float64, tg *notify.Telegram) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req WithdrawalRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			// If binding fails, return bad request
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
			return
		}
		// The client validates these too, but the server is authoritative
		if req.Amount < minAmount {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": fmt.Sprintf("Минимальная сумма вывода — %.0f ₽", minAmount)})
			return
		}
		// Payout details must be present
		if strings.TrimSpace(req.PaymentDetails) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Укажите реквизиты для выплаты"})
			return
		}
		// The current client always sends card
		if req.PaymentMethod == "" {
			req.PaymentMethod = "card"
		}
		var user domain.User // Fetch the requesting user
		if err := db.First(&user, req.UserID).Error; err != nil {
			// If user not found, return not found
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Пользователь не найден"})
			return
		}
		// Check sufficient funds
		if user.Balance < req.Amount {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Недостаточно средств"})
			return
		}
		// Reserve the amount and record the request atomically
		err := db.Transaction(func(tx *gorm.DB) error {
			// Deduct the requested amount from the balance
			if err := tx.Model(&user).Update("balance", gorm.Expr("balance - ?", req.Amount)).Error; err != nil {
				return err // Return error to rollback
			}
			// Record the pending withdrawal
			w := domain.Withdrawal{
				UserID:         user.ID,                  // Requesting user
				Amount:         req.Amount,               // Requested amount
				PaymentMethod:  req.PaymentMethod,        // Payment method
				PaymentDetails: req.PaymentDetails,       // Payout details
				Status:         domain.WithdrawalPending, // Awaiting the operator
			}
			if err := tx.Create(&w).Error; err != nil {
				return err // Return error to rollback
			}
			return nil // Commit transaction
		})
		// Handle transaction result
		if err != nil {
			// Log the error with context
			logrus.WithFields(logrus.Fields{
				"user_id": req.UserID,  // Requesting user
				"amount":  req.Amount,  // Requested amount
				"error":   err.Error(), // Error message
			}).Error("Withdrawal request failed") // Log withdrawal failure
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Не удалось отправить заявку"})
			return
		}
		// Log the accepted request
		logrus.WithFields(logrus.Fields{
			"user_id": user.ID,           // Requesting user
			"amount":  req.Amount,        // Requested amount
			"method":  req.PaymentMethod, // Payment method
		}).Info("Withdrawal requested") // Log withdrawal request
		metrics.WithdrawalRequests.Inc() // Count the request
		// The admin listing shows balances, its cache is now stale
		_ = utils.DeleteCache(context.Background(), rdb, utils.AdminUsersKey)
		// Notify the operator, nil-safe when notifications are disabled
		tg.WithdrawalRequested(user.Email, req.Amount, req.PaymentDetails)
		// Return success response
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
