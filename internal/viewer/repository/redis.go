// Package repository - хранилища аннотаций и сведений о документах.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/models"

	"github.com/redis/go-redis/v9"
)

var ErrNotFound = errors.New("not found")

const documentsKey = "documents"

// ============================================================
// Redis Repository
// ============================================================

// RedisRepository хранит маркеры под ключом markers-<hash> как JSON-массив,
// документы - в хеше documents.
type RedisRepository struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

// OpenRedis разбирает URL подключения и проверяет доступность сервера.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *RedisRepository) Get(ctx context.Context, hash string) ([]models.Marker, error) {
	raw, err := r.client.Get(ctx, annotation.StorageKey(hash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.Marker{}, nil
		}
		return nil, err
	}

	markers := []models.Marker{}
	if err := json.Unmarshal(raw, &markers); err != nil {
		return nil, fmt.Errorf("decode markers %s: %w", hash, err)
	}
	return markers, nil
}

func (r *RedisRepository) Put(ctx context.Context, hash string, markers []models.Marker) error {
	if markers == nil {
		markers = []models.Marker{}
	}
	data, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}
	if err := r.client.Set(ctx, annotation.StorageKey(hash), data, 0).Err(); err != nil {
		return fmt.Errorf("save markers: %w", err)
	}
	return nil
}

func (r *RedisRepository) RecordDocument(ctx context.Context, doc models.StoredDocument) error {
	if existing, err := r.GetDocument(ctx, doc.Hash); err == nil {
		doc.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	if doc.CreatedAt == "" {
		doc.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := r.client.HSet(ctx, documentsKey, doc.Hash, data).Err(); err != nil {
		return fmt.Errorf("record document: %w", err)
	}
	return nil
}

func (r *RedisRepository) GetDocument(ctx context.Context, hash string) (*models.StoredDocument, error) {
	raw, err := r.client.HGet(ctx, documentsKey, hash).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var d models.StoredDocument
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", hash, err)
	}
	return &d, nil
}

func (r *RedisRepository) ListDocuments(ctx context.Context) ([]models.StoredDocument, error) {
	all, err := r.client.HGetAll(ctx, documentsKey).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]models.StoredDocument, 0, len(all))
	for hash, raw := range all {
		var d models.StoredDocument
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", hash, err)
		}
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt != docs[j].CreatedAt {
			return docs[i].CreatedAt > docs[j].CreatedAt
		}
		return docs[i].Filename < docs[j].Filename
	})
	return docs, nil
}
