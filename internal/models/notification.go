package models

import "time"

// Notification is a message addressed to one user.
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationEvent is the broadcast payload consumed by the realtime collaborator.
type NotificationEvent struct {
	TargetUserID string `json:"user_id"`
	Message      string `json:"message"`
}
