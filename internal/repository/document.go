package repository

import (
	"context"

	"docchain/internal/model"
)

// AppendResult is what a committed CreateVersion hands back to the caller.
type AppendResult struct {
	Version model.Version
	// Title of the owning document, read under the lock.
	Title string
	// PreviousVersionID is the version the pointer referenced before the append, nil for the first version.
	PreviousVersionID *string
}

// VersionStore owns documents and their version chains.
//
// CreateDocument and CreateVersion are transactional: either every row is
// committed or nothing is. CreateVersion serializes appenders of the same
// document so version numbers stay gap-free; appenders of different
// documents never wait on each other.
type VersionStore interface {
	// CreateDocument inserts a document together with its version 1 and sets the pointer.
	CreateDocument(ctx context.Context, title, createdBy, content string) (*model.Document, *model.Version, error)

	// CreateVersion appends the next version of documentID. Returns ErrNotFound for unknown ids.
	CreateVersion(ctx context.Context, documentID, content string) (*AppendResult, error)

	// GetLatest reads the snapshot of the current version without locking.
	GetLatest(ctx context.Context, documentID string) (*model.Snapshot, error)

	// FindVersions returns the versions with the given ids that exist, in no particular order.
	FindVersions(ctx context.Context, ids ...string) ([]model.Version, error)

	// ListVersions returns the chain of documentID ordered by version number.
	ListVersions(ctx context.Context, documentID string) ([]model.Version, error)

	// SearchByTitle runs a full-text match on document titles.
	SearchByTitle(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error)
}
