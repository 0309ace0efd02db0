package repository

import (
	"context"
	"sort"
	"time"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/models"

	"github.com/patrickmn/go-cache"
)

// Backend - полный набор операций хранилища, нужный сервису.
type Backend interface {
	annotation.Store
	RecordDocument(ctx context.Context, doc models.StoredDocument) error
	GetDocument(ctx context.Context, hash string) (*models.StoredDocument, error)
	ListDocuments(ctx context.Context) ([]models.StoredDocument, error)
}

var (
	_ Backend = (*Repository)(nil)
	_ Backend = (*RedisRepository)(nil)
	_ Backend = (*MemoryRepository)(nil)
)

// ============================================================
// Memory Repository
// ============================================================

// MemoryRepository живёт только в памяти процесса (STORE_BACKEND=memory, тесты).
type MemoryRepository struct {
	*annotation.MemoryStore
	documents *cache.Cache
}

func NewMemory() *MemoryRepository {
	return &MemoryRepository{
		MemoryStore: annotation.NewMemoryStore(),
		documents:   cache.New(cache.NoExpiration, 0),
	}
}

func (r *MemoryRepository) RecordDocument(_ context.Context, doc models.StoredDocument) error {
	if v, ok := r.documents.Get(doc.Hash); ok {
		doc.CreatedAt = v.(models.StoredDocument).CreatedAt
	}
	if doc.CreatedAt == "" {
		doc.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	r.documents.Set(doc.Hash, doc, cache.NoExpiration)
	return nil
}

func (r *MemoryRepository) GetDocument(_ context.Context, hash string) (*models.StoredDocument, error) {
	v, ok := r.documents.Get(hash)
	if !ok {
		return nil, ErrNotFound
	}
	d := v.(models.StoredDocument)
	return &d, nil
}

func (r *MemoryRepository) ListDocuments(_ context.Context) ([]models.StoredDocument, error) {
	items := r.documents.Items()
	docs := make([]models.StoredDocument, 0, len(items))
	for _, item := range items {
		docs = append(docs, item.Object.(models.StoredDocument))
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt != docs[j].CreatedAt {
			return docs[i].CreatedAt > docs[j].CreatedAt
		}
		return docs[i].Filename < docs[j].Filename
	})
	return docs, nil
}
