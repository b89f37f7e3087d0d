package domain

// Withdrawal statuses
const (
	WithdrawalPending = "pending" // Awaiting manual processing by the operator
	WithdrawalPaid    = "paid"    // Paid out
	WithdrawalDenied  = "denied"  // Rejected by the operator
)

// Withdrawal Model
type Withdrawal struct {
	ID             uint    `gorm:"primaryKey"`           // Primary key
	UserID         uint    `gorm:"index;not null"`       // Foreign key to User
	Amount         float64 `gorm:"not null"`             // Requested amount
	PaymentMethod  string  `gorm:"not null"`             // Payment method, "card" in the current client
	PaymentDetails string  `gorm:"not null"`             // Free-text payout details (card number etc.)
	Status         string  `gorm:"default:pending"`      // Processing status
	CreatedAt      int64   `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
