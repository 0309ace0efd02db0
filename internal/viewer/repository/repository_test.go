package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"drawing-viewer/internal/viewer/models"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Repository {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "viewer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := New(db)
	require.NoError(t, repo.Init(context.Background(), "../../../migrations/001_init_annotations.sql"))
	return repo
}

// openRedis подключается к TEST_REDIS_URL, если он задан, иначе к miniredis.
func openRedis(t *testing.T) *RedisRepository {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://" + miniredis.RunT(t).Addr()
	}
	client, err := OpenRedis(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		_ = client.Close()
	})
	return NewRedis(client)
}

func backends(t *testing.T) map[string]func(*testing.T) Backend {
	return map[string]func(*testing.T) Backend{
		"sqlite": func(t *testing.T) Backend { return openSQLite(t) },
		"redis":  func(t *testing.T) Backend { return openRedis(t) },
		"memory": func(t *testing.T) Backend { return NewMemory() },
	}
}

func TestAnnotationPersistence(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			markers := []models.Marker{
				{ID: "a", IconRef: "MCP", X: 10.5, Y: -2},
				{ID: "b", IconRef: "AutroGuard", X: 0, Y: 700},
			}
			require.NoError(t, repo.Put(ctx, "hash-1", markers))

			got, err := repo.Get(ctx, "hash-1")
			require.NoError(t, err)
			assert.Equal(t, markers, got)

			empty, err := repo.Get(ctx, "never-saved")
			require.NoError(t, err)
			assert.Equal(t, []models.Marker{}, empty)
		})
	}
}

func TestPutReplacesRecord(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			require.NoError(t, repo.Put(ctx, "h", []models.Marker{{ID: "a"}, {ID: "b"}}))
			require.NoError(t, repo.Put(ctx, "h", nil))

			got, err := repo.Get(ctx, "h")
			require.NoError(t, err)
			assert.Equal(t, []models.Marker{}, got)
		})
	}
}

func TestDocumentCatalog(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := open(t)

			_, err := repo.GetDocument(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, repo.RecordDocument(ctx, models.StoredDocument{Hash: "h1", Filename: "plan.dxf", Size: 10}))
			require.NoError(t, repo.RecordDocument(ctx, models.StoredDocument{Hash: "h1", Filename: "renamed.dxf", Size: 10}))

			doc, err := repo.GetDocument(ctx, "h1")
			require.NoError(t, err)
			assert.Equal(t, "renamed.dxf", doc.Filename)
			assert.Equal(t, int64(10), doc.Size)
			assert.NotEmpty(t, doc.CreatedAt)

			docs, err := repo.ListDocuments(ctx)
			require.NoError(t, err)
			assert.Len(t, docs, 1)
		})
	}
}
