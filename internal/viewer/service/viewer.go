// Package service связывает сессии просмотра с источниками документов,
// хранилищем аннотаций и файловым хранилищем.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/repository"
	"drawing-viewer/internal/viewer/source"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options - параметры сессий по умолчанию.
type Options struct {
	Viewport       models.Size
	ThumbnailWidth int
	Palette        []string
	IconSize       float64
}

// ============================================================
// Viewer
// ============================================================

// Viewer - прикладной сервис: создаёт сессии и загружает в них документы.
type Viewer struct {
	ctx      context.Context
	sessions *Registry
	sources  *source.Registry
	backend  repository.Backend
	files    *FileStorage
	saver    Saver
	opts     Options
	log      *zap.Logger

	// hashFn подменяется в тестах
	hashFn func(data []byte) (string, error)
}

func NewViewer(
	ctx context.Context,
	sessions *Registry,
	sources *source.Registry,
	backend repository.Backend,
	files *FileStorage,
	saver Saver,
	opts Options,
	log *zap.Logger,
) *Viewer {
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = 240
	}
	if len(opts.Palette) == 0 {
		opts.Palette = annotation.DefaultPalette
	}
	return &Viewer{
		ctx:      ctx,
		sessions: sessions,
		sources:  sources,
		backend:  backend,
		files:    files,
		saver:    saver,
		opts:     opts,
		log:      log,
		hashFn: func(data []byte) (string, error) {
			return annotation.HashReader(bytes.NewReader(data))
		},
	}
}

func (v *Viewer) CreateSession() *Session {
	return v.sessions.Issue(func(id string) *Session {
		return newSession(id, v.opts.Viewport, v.saver, v.opts.ThumbnailWidth, v.opts.Palette, v.opts.IconSize)
	})
}

func (v *Viewer) Session(id string) (*Session, error) {
	return v.sessions.Resolve(id)
}

func (v *Viewer) CloseSession(id string) error {
	return v.sessions.Remove(id)
}

func (v *Viewer) Palette() []string {
	return append([]string(nil), v.opts.Palette...)
}

func (v *Viewer) Documents(ctx context.Context) ([]models.StoredDocument, error) {
	return v.backend.ListDocuments(ctx)
}

// ============================================================
// Loading
// ============================================================

// Load начинает загрузку документа в сессию и сразу возвращается.
// Неподдерживаемый тип отклоняется до декодирования, сессия не меняется.
func (v *Viewer) Load(s *Session, filename string, data []byte) error {
	src, err := v.sources.Resolve(filename)
	if err != nil {
		return err
	}

	gen := s.beginLoad(filepath.Base(filename))
	v.log.Info("document load started",
		zap.String("session", s.ID), zap.String("file", filename),
		zap.Int("bytes", len(data)), zap.Uint64("generation", gen))

	go v.load(s, gen, src, filename, data)
	return nil
}

// Reopen загружает ранее сохранённый файл по хешу содержимого.
func (v *Viewer) Reopen(ctx context.Context, s *Session, hash string) error {
	doc, err := v.backend.GetDocument(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSourceNotStored
		}
		return err
	}
	data, err := v.files.Load(doc.Hash, doc.Filename)
	if err != nil {
		return err
	}
	return v.Load(s, doc.Filename, data)
}

// load хеширует и декодирует файл параллельно и применяет результат к сессии.
func (v *Viewer) load(s *Session, gen uint64, src source.Source, filename string, data []byte) {
	var res loadResult
	g, ctx := errgroup.WithContext(v.ctx)

	g.Go(func() error {
		res.hash, res.hashErr = v.hashFn(data)
		if res.hashErr != nil {
			v.log.Warn("hashing failed, annotations disabled", zap.String("session", s.ID), zap.Error(res.hashErr))
			return nil
		}
		res.markers = v.restore(ctx, res.hash)
		return nil
	})

	g.Go(func() error {
		return v.decode(ctx, src, data, &res)
	})

	res.decodeErr = g.Wait()
	if res.decodeErr == nil && res.hashErr == nil {
		v.keep(v.ctx, res.hash, filename, data)
	}

	if !s.finishLoad(gen, res) {
		v.log.Info("stale load discarded", zap.String("session", s.ID), zap.Uint64("generation", gen))
		return
	}
	if res.decodeErr != nil {
		v.log.Warn("document load failed", zap.String("session", s.ID), zap.Error(res.decodeErr))
		return
	}
	v.log.Info("document ready",
		zap.String("session", s.ID), zap.String("hash", res.hash),
		zap.Float64("width", res.surface.Width), zap.Float64("height", res.surface.Height),
		zap.Int("markers", len(res.markers)))
}

func (v *Viewer) decode(ctx context.Context, src source.Source, data []byte, res *loadResult) error {
	doc, err := src.Load(ctx, data)
	if err != nil {
		return err
	}

	var visible models.LayerSet
	if layered, ok := doc.(source.LayeredDocument); ok {
		visible = models.NewLayerSet(layered.DefaultLayers()...)
	}

	surface, err := doc.Render(ctx, visible)
	if err != nil {
		return err
	}

	overview := surface
	if visible != nil {
		if overview, err = doc.Render(ctx, nil); err != nil {
			return err
		}
	}

	res.doc = doc
	res.visible = visible
	res.surface = surface
	res.overview = overview
	return nil
}

// keep сохраняет исходный файл успешно открытого документа для повторного открытия.
// Ошибки хранилища не прерывают загрузку.
func (v *Viewer) keep(ctx context.Context, hash, filename string, data []byte) {
	if err := v.files.Save(hash, filename, data); err != nil {
		v.log.Warn("store source file", zap.String("hash", hash), zap.Error(err))
		return
	}
	if err := v.backend.RecordDocument(ctx, models.StoredDocument{
		Hash:     hash,
		Filename: filepath.Base(filename),
		Size:     int64(len(data)),
	}); err != nil {
		v.log.Warn("record document", zap.String("hash", hash), zap.Error(err))
	}
}

// restore читает сохранённые маркеры документа.
func (v *Viewer) restore(ctx context.Context, hash string) []models.Marker {
	markers, err := v.backend.Get(ctx, hash)
	if err != nil {
		v.log.Warn("load markers", zap.String("hash", hash), zap.Error(err))
		return []models.Marker{}
	}
	return markers
}

// Describe - краткая строка для логов.
func (v *Viewer) Describe() string {
	return fmt.Sprintf("sessions=%d sources=%v", v.sessions.Count(), v.sources.Extensions())
}
