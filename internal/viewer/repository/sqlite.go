package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"drawing-viewer/internal/viewer/models"
)

// ============================================================
// SQLite Repository
// ============================================================

// Repository хранит маркеры и список загруженных документов в SQLite.
type Repository struct {
	db *sql.DB
}

func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Init запускает миграции.
func (r *Repository) Init(ctx context.Context, migrationsPath string) error {
	if err := r.runMigrations(ctx, migrationsPath); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// Get возвращает маркеры документа; для неизвестного хеша - пустой список.
func (r *Repository) Get(ctx context.Context, hash string) ([]models.Marker, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT markers
        FROM annotations
        WHERE content_hash = ?
    `, hash)

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Marker{}, nil
		}
		return nil, err
	}

	markers := []models.Marker{}
	if err := json.Unmarshal([]byte(raw), &markers); err != nil {
		return nil, fmt.Errorf("decode markers %s: %w", hash, err)
	}
	return markers, nil
}

// Put полностью заменяет маркеры документа.
func (r *Repository) Put(ctx context.Context, hash string, markers []models.Marker) error {
	if markers == nil {
		markers = []models.Marker{}
	}
	data, err := json.Marshal(markers)
	if err != nil {
		return fmt.Errorf("encode markers: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
        INSERT INTO annotations (content_hash, markers, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(content_hash) DO UPDATE SET
            markers = excluded.markers,
            updated_at = excluded.updated_at
    `, hash, string(data))
	if err != nil {
		return fmt.Errorf("save markers: %w", err)
	}
	return nil
}

// ============================================================
// Documents
// ============================================================

// RecordDocument запоминает имя и размер загруженного файла. Повторная
// загрузка тех же байтов обновляет имя.
func (r *Repository) RecordDocument(ctx context.Context, doc models.StoredDocument) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO documents (content_hash, filename, size)
        VALUES (?, ?, ?)
        ON CONFLICT(content_hash) DO UPDATE SET filename = excluded.filename
    `, doc.Hash, doc.Filename, doc.Size)
	if err != nil {
		return fmt.Errorf("record document: %w", err)
	}
	return nil
}

func (r *Repository) GetDocument(ctx context.Context, hash string) (*models.StoredDocument, error) {
	row := r.db.QueryRowContext(ctx, `
        SELECT content_hash, filename, size, created_at
        FROM documents
        WHERE content_hash = ?
    `, hash)

	var d models.StoredDocument
	if err := row.Scan(&d.Hash, &d.Filename, &d.Size, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *Repository) ListDocuments(ctx context.Context) ([]models.StoredDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT content_hash, filename, size, created_at
        FROM documents
        ORDER BY created_at DESC, filename
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.StoredDocument{}
	for rows.Next() {
		var d models.StoredDocument
		if err := rows.Scan(&d.Hash, &d.Filename, &d.Size, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ============================================================
// Migrations
// ============================================================

func (r *Repository) runMigrations(ctx context.Context, migrationsPath string) error {
	data, err := os.ReadFile(migrationsPath)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// OpenSQLite открывает sqlite по указанному пути.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
