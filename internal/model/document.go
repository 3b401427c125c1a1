package model

import "time"

// Document is the head record of a version chain.
// CurrentVersionID is nil only inside the transaction that creates the document.
type Document struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CreatedBy        string    `json:"created_by"`
	CurrentVersionID *string   `json:"current_version_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// DocumentSummary is the projection returned by title search.
type DocumentSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}
