package model

import "time"

// ArchivedTurn is a transcript message mirrored into the archive database.
type ArchivedTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:36;not null;index" json:"session_id"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Document  string    `gorm:"size:256" json:"document"`
	Mode      string    `gorm:"size:16" json:"mode"`
	Model     string    `gorm:"size:64" json:"model"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
