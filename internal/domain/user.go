package domain

import "time"

// User Model
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`                   // Primary key
	Email         string    `gorm:"unique;not null" json:"email"`           // Unique email, used as the login
	Password      string    `gorm:"not null" json:"-"`                      // Hashed password, never serialized
	FullName      string    `gorm:"not null" json:"full_name"`              // Display name
	Balance       float64   `gorm:"not null;default:0" json:"balance"`      // Referral bonus balance, server-authoritative
	ReferralCount int       `gorm:"not null;default:0" json:"referral_count"` // Number of referred signups
	ReferralCode  string    `gorm:"uniqueIndex" json:"referral_code"`       // Opaque code used in shareable links
	CreatedAt     time.Time `json:"created_at"`                             // Registration timestamp
}
