package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"docchain/internal/model"
	"docchain/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.VersionStore.
// Appends are serialized per document with SELECT ... FOR UPDATE inside a
// REPEATABLE READ transaction.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres store.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.VersionStore = (*DocumentPostgres)(nil)

// appendTxOptions is the isolation every write transaction runs at. The
// gap-free numbering depends on it, so it is never left to the server default.
var appendTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}

const versionColumns = `id, document_id, version_number, content, created_at`

// CreateDocument inserts the document, its version 1 and the pointer in one transaction.
func (r *DocumentPostgres) CreateDocument(ctx context.Context, title, createdBy, content string) (_ *model.Document, _ *model.Version, err error) {
	tx, err := r.db.BeginTx(ctx, appendTxOptions)
	if err != nil {
		return nil, nil, repository.StoreFailure("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const qDoc = `
		INSERT INTO documents (title, created_by)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	doc := model.Document{Title: title, CreatedBy: createdBy}
	if err = tx.QueryRowContext(ctx, qDoc, title, createdBy).Scan(&doc.ID, &doc.CreatedAt); err != nil {
		return nil, nil, repository.StoreFailure("insert document", err)
	}

	ver, err := insertVersion(ctx, tx, doc.ID, 1, content)
	if err != nil {
		return nil, nil, err
	}

	if err = setPointer(ctx, tx, doc.ID, ver.ID); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, repository.StoreFailure("commit", err)
	}

	doc.CurrentVersionID = &ver.ID
	return &doc, ver, nil
}

// CreateVersion appends the next version of a document.
//
// The row lock on the document is the only serialization point: the current
// number is read, incremented and written back while it is held, and it is
// released by Commit or Rollback.
func (r *DocumentPostgres) CreateVersion(ctx context.Context, documentID, content string) (_ *repository.AppendResult, err error) {
	tx, err := r.db.BeginTx(ctx, appendTxOptions)
	if err != nil {
		return nil, repository.StoreFailure("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const qLock = `
		SELECT title, current_version_id
		FROM documents
		WHERE id = $1
		FOR UPDATE
	`
	var (
		title   string
		current sql.NullString
	)
	if err = tx.QueryRowContext(ctx, qLock, documentID).Scan(&title, &current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.StoreFailure("lock document", err)
	}

	currentNumber := 0
	var previousID *string
	if current.Valid {
		const qNumber = `SELECT version_number FROM versions WHERE id = $1`
		// The pointer is a foreign key, so a missing row is a store failure like any other.
		if err = tx.QueryRowContext(ctx, qNumber, current.String).Scan(&currentNumber); err != nil {
			return nil, repository.StoreFailure("read current version", err)
		}
		prev := current.String
		previousID = &prev
	}

	ver, err := insertVersion(ctx, tx, documentID, currentNumber+1, content)
	if err != nil {
		return nil, err
	}

	if err = setPointer(ctx, tx, documentID, ver.ID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, repository.StoreFailure("commit", err)
	}

	return &repository.AppendResult{
		Version:           *ver,
		Title:             title,
		PreviousVersionID: previousID,
	}, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, documentID string, number int, content string) (*model.Version, error) {
	const q = `
		INSERT INTO versions (document_id, version_number, content)
		VALUES ($1, $2, $3)
		RETURNING ` + versionColumns
	var v model.Version
	if err := tx.QueryRowContext(ctx, q, documentID, number, content).Scan(
		&v.ID,
		&v.DocumentID,
		&v.VersionNumber,
		&v.Content,
		&v.CreatedAt,
	); err != nil {
		return nil, repository.StoreFailure("insert version", err)
	}
	return &v, nil
}

func setPointer(ctx context.Context, tx *sql.Tx, documentID, versionID string) error {
	const q = `UPDATE documents SET current_version_id = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, q, versionID, documentID); err != nil {
		return repository.StoreFailure("update pointer", err)
	}
	return nil
}

// GetLatest joins the document with the version its pointer references.
func (r *DocumentPostgres) GetLatest(ctx context.Context, documentID string) (*model.Snapshot, error) {
	const q = `
		SELECT d.id, d.title, v.version_number, v.content, v.created_at
		FROM documents d
		JOIN versions v ON d.current_version_id = v.id
		WHERE d.id = $1
	`
	var s model.Snapshot
	if err := r.db.QueryRowContext(ctx, q, documentID).Scan(
		&s.DocumentID,
		&s.Title,
		&s.Version,
		&s.Content,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.StoreFailure("get latest", err)
	}
	return &s, nil
}

// FindVersions fetches versions by id. Missing ids are simply absent from the result.
func (r *DocumentPostgres) FindVersions(ctx context.Context, ids ...string) ([]model.Version, error) {
	if len(ids) == 0 {
		return []model.Version{}, nil
	}
	const q = `SELECT ` + versionColumns + ` FROM versions WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, q, pq.Array(ids))
	if err != nil {
		return nil, repository.StoreFailure("find versions", err)
	}
	return scanVersions(rows)
}

// ListVersions returns the whole chain of a document, oldest first.
func (r *DocumentPostgres) ListVersions(ctx context.Context, documentID string) ([]model.Version, error) {
	const q = `
		SELECT ` + versionColumns + `
		FROM versions
		WHERE document_id = $1
		ORDER BY version_number ASC
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, repository.StoreFailure("list versions", err)
	}
	items, err := scanVersions(rows)
	if err != nil {
		return nil, err
	}
	// Every document is created together with version 1.
	if len(items) == 0 {
		return nil, repository.ErrNotFound
	}
	return items, nil
}

func scanVersions(rows *sql.Rows) ([]model.Version, error) {
	defer rows.Close()

	items := make([]model.Version, 0)
	for rows.Next() {
		var v model.Version
		if err := rows.Scan(
			&v.ID,
			&v.DocumentID,
			&v.VersionNumber,
			&v.Content,
			&v.CreatedAt,
		); err != nil {
			return nil, repository.StoreFailure("scan version", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StoreFailure("iterate versions", err)
	}
	return items, nil
}

// SearchByTitle matches titles with Postgres full-text search.
func (r *DocumentPostgres) SearchByTitle(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error) {
	const q = `
		SELECT id, title, created_by, created_at
		FROM documents
		WHERE to_tsvector('english', title) @@ plainto_tsquery('english', $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, repository.StoreFailure("search documents", err)
	}
	defer rows.Close()

	items := make([]model.DocumentSummary, 0)
	for rows.Next() {
		var d model.DocumentSummary
		if err := rows.Scan(&d.ID, &d.Title, &d.CreatedBy, &d.CreatedAt); err != nil {
			return nil, repository.StoreFailure("scan document", err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StoreFailure("iterate documents", err)
	}
	return items, nil
}
