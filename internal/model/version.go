package model

import "time"

// Version is an immutable entry of a document's version chain.
type Version struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	VersionNumber int       `json:"version_number"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// Snapshot is the denormalized "latest version" view served by the read path.
// Its JSON form is also the cache value.
type Snapshot struct {
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	Version    int       `json:"version"`
	Content    string    `json:"content"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
