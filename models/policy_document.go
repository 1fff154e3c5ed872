package models

import (
	"time"

	"github.com/google/uuid"
)

// PolicyDocument represents an uploaded policy document. Text holds the
// extracted plain text used by the template generation pipeline; the raw
// upload lives in blob storage at StoragePath.
type PolicyDocument struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Text        string    `json:"text"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}
