package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchain/internal/model"
	"docchain/internal/repository"
)

// Store is an in-process repository.VersionStore used for local runs and tests.
//
// Each document owns a mutex that plays the role of the row lock: an append
// holds it from reading the current number until the pointer is written.
// The store-wide RWMutex only guards the maps and is never held across an append.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*model.Document
	versions map[string]model.Version
	chains   map[string][]string
	locks    map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		docs:     make(map[string]*model.Document),
		versions: make(map[string]model.Version),
		chains:   make(map[string][]string),
		locks:    make(map[string]*sync.Mutex),
	}
}

var _ repository.VersionStore = (*Store)(nil)

func (s *Store) CreateDocument(_ context.Context, title, createdBy, content string) (*model.Document, *model.Version, error) {
	now := time.Now().UTC()
	doc := &model.Document{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	ver := model.Version{
		ID:            uuid.NewString(),
		DocumentID:    doc.ID,
		VersionNumber: 1,
		Content:       content,
		CreatedAt:     now,
	}
	doc.CurrentVersionID = &ver.ID

	s.mu.Lock()
	s.docs[doc.ID] = doc
	s.versions[ver.ID] = ver
	s.chains[doc.ID] = []string{ver.ID}
	s.locks[doc.ID] = &sync.Mutex{}
	s.mu.Unlock()

	out := *doc
	return &out, &ver, nil
}

func (s *Store) CreateVersion(_ context.Context, documentID, content string) (*repository.AppendResult, error) {
	s.mu.RLock()
	lock, ok := s.locks[documentID]
	s.mu.RUnlock()
	if !ok {
		return nil, repository.ErrNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	doc := s.docs[documentID]
	title := doc.Title
	currentNumber := 0
	var previousID *string
	if doc.CurrentVersionID != nil {
		if cur, ok := s.versions[*doc.CurrentVersionID]; ok {
			currentNumber = cur.VersionNumber
			prev := cur.ID
			previousID = &prev
		}
	}
	s.mu.RUnlock()

	ver := model.Version{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		VersionNumber: currentNumber + 1,
		Content:       content,
		CreatedAt:     time.Now().UTC(),
	}

	s.mu.Lock()
	s.versions[ver.ID] = ver
	s.chains[documentID] = append(s.chains[documentID], ver.ID)
	id := ver.ID
	doc.CurrentVersionID = &id
	s.mu.Unlock()

	return &repository.AppendResult{
		Version:           ver,
		Title:             title,
		PreviousVersionID: previousID,
	}, nil
}

func (s *Store) GetLatest(_ context.Context, documentID string) (*model.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	if !ok || doc.CurrentVersionID == nil {
		return nil, repository.ErrNotFound
	}
	ver, ok := s.versions[*doc.CurrentVersionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.Snapshot{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Version:    ver.VersionNumber,
		Content:    ver.Content,
		UpdatedAt:  ver.CreatedAt,
	}, nil
}

func (s *Store) FindVersions(_ context.Context, ids ...string) ([]model.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Version, 0, len(ids))
	for _, id := range ids {
		if v, ok := s.versions[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Store) ListVersions(_ context.Context, documentID string) ([]model.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain, ok := s.chains[documentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := make([]model.Version, 0, len(chain))
	for _, id := range chain {
		out = append(out, s.versions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNumber < out[j].VersionNumber })
	return out, nil
}

// SearchByTitle matches documents whose title contains every word of query, case-insensitively.
func (s *Store) SearchByTitle(_ context.Context, query string, limit int) ([]model.DocumentSummary, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []model.DocumentSummary{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.DocumentSummary, 0)
	for _, d := range s.docs {
		if matchesAll(d.Title, terms) {
			out = append(out, model.DocumentSummary{
				ID:        d.ID,
				Title:     d.Title,
				CreatedBy: d.CreatedBy,
				CreatedAt: d.CreatedAt,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchesAll(title string, terms []string) bool {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(title)) {
		words[w] = struct{}{}
	}
	for _, t := range terms {
		if _, ok := words[t]; !ok {
			return false
		}
	}
	return true
}
