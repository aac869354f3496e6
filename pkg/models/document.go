package models

import "time"

// Document is an ingested upload: the extracted full text plus metadata.
// Documents are immutable once created and are never deleted via the API.
type Document struct {
	ID        int       `json:"id"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
