package model

import "time"

// Status is the lifecycle state of an application.
// An application starts as Applied; a verifier moves it to Verified or
// SentBack. No transition guard exists: a verifier may re-verify or send
// back an application regardless of its current status.
type Status string

const (
	StatusApplied  Status = "Applied"
	StatusVerified Status = "Verified"
	StatusSentBack Status = "Sent Back"
)

// Application is a single assistance request submitted by an applicant.
// This is a pure domain model with no database-specific dependencies or tags.
type Application struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Amount          float64    `json:"amount"`
	Purpose         string     `json:"purpose"`
	Status          Status     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	VerifierComment string     `json:"verifier_comment"`
	Documents       []Document `json:"documents"`
}

// Document is one uploaded file attached to an Application.
// Filename is the system-generated stored name (random token + original
// extension); OriginalFilename is whatever the uploader supplied and is
// used only for display and download naming.
type Document struct {
	ID               int64     `json:"id"`
	ApplicationID    int64     `json:"-"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	DocType          string    `json:"doc_type"`
	UploadedAt       time.Time `json:"-"`
}
