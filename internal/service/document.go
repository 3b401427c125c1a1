package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docchain/internal/cache"
	"docchain/internal/diffjob"
	"docchain/internal/metrics"
	"docchain/internal/model"
	"docchain/internal/repository"
)

var (
	ErrIDRequired      = errors.New("id is required")
	ErrTitleRequired   = errors.New("title is required")
	ErrCreatorRequired = errors.New("createdBy is required")
	ErrContentRequired = errors.New("content is required")
	ErrQueryRequired   = errors.New("query is required")
	ErrNotFound        = errors.New("document not found")
	ErrDiffNotFound    = errors.New("diff not found")
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

var tracer = otel.Tracer("docchain/service")

// Dispatcher hands a diff job to the queue. It does not report failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, job model.DiffJob)
}

// DiffReader reads published diffs back.
type DiffReader interface {
	Fetch(ctx context.Context, documentID, newVersionID string) (*model.Diff, error)
}

// DocumentService defines the use cases for versioned documents.
type DocumentService interface {
	// CreateDocument stores the document with its version 1 and primes the cache.
	CreateDocument(ctx context.Context, title, createdBy, content string) (*model.Document, error)

	// CreateVersion appends the next version, refreshes the cache and enqueues the diff
	// against the previous version. Only the append itself can fail the call.
	CreateVersion(ctx context.Context, documentID, content string) (*model.Version, error)

	// GetLatest returns the latest snapshot, from the cache when possible.
	GetLatest(ctx context.Context, documentID string) (*model.Snapshot, error)

	// ListVersions returns the whole chain ordered by version number.
	ListVersions(ctx context.Context, documentID string) ([]model.Version, error)

	// Search matches document titles. limit is clamped to MaxSearchLimit.
	Search(ctx context.Context, query string, limit int) ([]model.DocumentSummary, error)

	// GetDiff returns the diff that produced versionID.
	GetDiff(ctx context.Context, documentID, versionID string) (*model.Diff, error)
}

type documentService struct {
	store      repository.VersionStore
	cache      cache.Cache
	dispatcher Dispatcher
	diffs      DiffReader
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store repository.VersionStore, c cache.Cache, d Dispatcher, diffs DiffReader) DocumentService {
	return &documentService{store: store, cache: c, dispatcher: d, diffs: diffs}
}

func (s *documentService) CreateDocument(ctx context.Context, title, createdBy, content string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.CreateDocument")
	defer func() { endSpan(span, err) }()

	switch {
	case strings.TrimSpace(title) == "":
		return nil, ErrTitleRequired
	case strings.TrimSpace(createdBy) == "":
		return nil, ErrCreatorRequired
	case content == "":
		return nil, ErrContentRequired
	}

	doc, v1, err := s.store.CreateDocument(ctx, title, createdBy, content)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	metrics.VersionsAppended.Inc()
	span.SetAttributes(attribute.String("document.id", doc.ID))

	s.cache.Set(ctx, doc.ID, &model.Snapshot{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Version:    v1.VersionNumber,
		Content:    v1.Content,
		UpdatedAt:  v1.CreatedAt,
	})
	return doc, nil
}

func (s *documentService) CreateVersion(ctx context.Context, documentID, content string) (v *model.Version, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.CreateVersion",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { endSpan(span, err) }()

	if documentID == "" {
		return nil, ErrIDRequired
	}
	if content == "" {
		return nil, ErrContentRequired
	}

	res, err := s.store.CreateVersion(ctx, documentID, content)
	if err != nil {
		return nil, mapStoreErr("create version", err)
	}
	metrics.VersionsAppended.Inc()
	span.SetAttributes(attribute.Int("version.number", res.Version.VersionNumber))

	s.cache.Set(ctx, documentID, &model.Snapshot{
		DocumentID: documentID,
		Title:      res.Title,
		Version:    res.Version.VersionNumber,
		Content:    res.Version.Content,
		UpdatedAt:  res.Version.CreatedAt,
	})

	if res.PreviousVersionID != nil {
		s.dispatcher.Dispatch(ctx, model.DiffJob{
			DocumentID:   documentID,
			OldVersionID: *res.PreviousVersionID,
			NewVersionID: res.Version.ID,
		})
	}
	return &res.Version, nil
}

func (s *documentService) GetLatest(ctx context.Context, documentID string) (snap *model.Snapshot, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.GetLatest",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { endSpan(span, err) }()

	if documentID == "" {
		return nil, ErrIDRequired
	}

	if snap, ok := s.cache.Get(ctx, documentID); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return snap, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	snap, err = s.store.GetLatest(ctx, documentID)
	if err != nil {
		return nil, mapStoreErr("get latest", err)
	}
	s.cache.Set(ctx, documentID, snap)
	return snap, nil
}

func (s *documentService) ListVersions(ctx context.Context, documentID string) (versions []model.Version, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.ListVersions",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	defer func() { endSpan(span, err) }()

	if documentID == "" {
		return nil, ErrIDRequired
	}
	versions, err = s.store.ListVersions(ctx, documentID)
	if err != nil {
		return nil, mapStoreErr("list versions", err)
	}
	return versions, nil
}

func (s *documentService) Search(ctx context.Context, query string, limit int) (docs []model.DocumentSummary, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Search")
	defer func() { endSpan(span, err) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	docs, err = s.store.SearchByTitle(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	span.SetAttributes(attribute.Int("search.results", len(docs)))
	return docs, nil
}

func (s *documentService) GetDiff(ctx context.Context, documentID, versionID string) (diff *model.Diff, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.GetDiff", trace.WithAttributes(
		attribute.String("document.id", documentID),
		attribute.String("version.id", versionID),
	))
	defer func() { endSpan(span, err) }()

	if documentID == "" || versionID == "" {
		return nil, ErrIDRequired
	}

	diff, err = s.diffs.Fetch(ctx, documentID, versionID)
	if err != nil {
		if errors.Is(err, diffjob.ErrDiffNotFound) {
			return nil, ErrDiffNotFound
		}
		return nil, fmt.Errorf("fetch diff: %w", err)
	}
	return diff, nil
}

func mapStoreErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
