package model

import "time"

// AnalysisRecord is one row of the diagnosis log written after a successful analysis.
type AnalysisRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SessionEmail     string    `gorm:"size:128;not null;index" json:"session_email"`
	PredictedClass   string    `gorm:"size:128;not null" json:"predicted_class"`
	Confidence       float64   `gorm:"not null" json:"confidence"`
	ImageURL         string    `gorm:"size:512" json:"image_url"`
	TopClassMismatch bool      `gorm:"not null;default:false" json:"top_class_mismatch"`
	CreatedAt        time.Time `json:"created_at"`
}
