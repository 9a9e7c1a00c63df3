package models

import "time"

// PushReceipt records the outcome of one push gateway dispatch (PostgreSQL).
type PushReceipt struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	NotificationID string    `json:"notification_id" gorm:"size:24;index"`
	Kind           string    `json:"kind" gorm:"size:40;index"`
	Recipients     int       `json:"recipients"`
	SuccessCount   int       `json:"success_count"`
	FailureCount   int       `json:"failure_count"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"index"`
}
