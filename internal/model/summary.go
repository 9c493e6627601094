package model

import "time"

// DocumentSummary is the generated overview of one document.
type DocumentSummary struct {
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generated_at"`
	Model       string    `json:"model"`
}
