package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/minimap"
	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/source"
	"drawing-viewer/internal/viewer/transform"
)

var (
	ErrNotReady     = errors.New("document is not ready")
	ErrNoLayers     = errors.New("document has no layers")
	ErrUnknownLayer = errors.New("unknown layer")
	ErrUnknownIcon  = errors.New("unknown icon")
	ErrBadAction    = errors.New("unknown transform action")
)

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

// Saver принимает полный список маркеров документа для фоновой записи.
type Saver interface {
	Enqueue(hash string, markers []models.Marker)
}

// loadResult - итог фоновой загрузки документа.
type loadResult struct {
	hash      string
	hashErr   error
	markers   []models.Marker
	doc       source.Document
	visible   models.LayerSet
	surface   *source.Surface
	overview  *source.Surface
	decodeErr error
}

// ============================================================
// Session
// ============================================================

// Session - один открытый документ со своей областью просмотра.
// Все изменения проходят под mu; фоновая загрузка применяет результат
// только если её поколение всё ещё текущее.
type Session struct {
	ID string

	mu         sync.Mutex
	state      State
	generation uint64
	loadErr    string
	done       chan struct{}

	filename   string
	hash       string
	persistent bool

	doc       source.Document
	surface   *source.Surface
	overview  *source.Surface
	thumbnail image.Image
	natural   models.Size

	allLayers []string
	visible   models.LayerSet

	viewport  models.Size
	transform transform.Transform
	markers   *annotation.Layer

	saver          Saver
	thumbnailWidth int
	palette        []string
}

func newSession(id string, viewport models.Size, saver Saver, thumbnailWidth int, palette []string, iconSize float64) *Session {
	done := make(chan struct{})
	close(done)
	return &Session{
		ID:             id,
		state:          StateIdle,
		done:           done,
		viewport:       viewport,
		transform:      transform.Identity(),
		markers:        annotation.NewLayer(iconSize),
		saver:          saver,
		thumbnailWidth: thumbnailWidth,
		palette:        palette,
	}
}

// beginLoad переводит сессию в Loading и возвращает номер поколения загрузки.
// Предыдущий документ сразу перестаёт быть доступен.
func (s *Session) beginLoad(filename string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	s.state = StateLoading
	s.loadErr = ""
	s.filename = filename
	s.hash = ""
	s.persistent = false
	s.doc = nil
	s.surface = nil
	s.overview = nil
	s.thumbnail = nil
	s.natural = models.Size{}
	s.allLayers = nil
	s.visible = nil
	s.markers.Reset(nil)

	select {
	case <-s.done:
		s.done = make(chan struct{})
	default:
	}
	return s.generation
}

// finishLoad применяет результат загрузки. Возвращает false, если загрузка устарела.
func (s *Session) finishLoad(gen uint64, res loadResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return false
	}
	defer close(s.done)

	if res.decodeErr != nil {
		s.state = StateFailed
		s.loadErr = res.decodeErr.Error()
		return true
	}

	s.state = StateReady
	s.doc = res.doc
	s.surface = res.surface
	s.overview = res.overview
	s.natural = res.surface.Size()
	s.visible = res.visible
	if layered, ok := res.doc.(source.LayeredDocument); ok {
		s.allLayers = append([]string{}, layered.LayerNames()...)
	}
	s.transform = transform.Identity()

	s.hash = res.hash
	s.persistent = res.hashErr == nil && res.hash != ""
	s.markers.Reset(res.markers)
	return true
}

// Wait блокируется до завершения текущей загрузки.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ============================================================
// Snapshot
// ============================================================

type View struct {
	SessionID   string              `json:"sessionId"`
	State       State               `json:"state"`
	Error       string              `json:"error,omitempty"`
	Filename    string              `json:"filename,omitempty"`
	Hash        string              `json:"hash,omitempty"`
	Persistent  bool                `json:"persistent"`
	Kind        source.Kind         `json:"kind,omitempty"`
	NaturalSize models.Size         `json:"naturalSize"`
	Viewport    models.Size         `json:"viewport"`
	Transform   transform.Transform `json:"transform"`
	ZoomPercent int                 `json:"zoomPercent"`
	CanPan      bool                `json:"canPan"`
	Cursor      string              `json:"cursor"`
	HasLayers   bool                `json:"hasLayers"`
	MarkerCount int                 `json:"markerCount"`
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:   s.ID,
		State:       s.state,
		Error:       s.loadErr,
		Filename:    s.filename,
		Hash:        s.hash,
		Persistent:  s.persistent,
		NaturalSize: s.natural,
		Viewport:    s.viewport,
		Transform:   s.transform,
		ZoomPercent: s.transform.ZoomPercent(),
		Cursor:      minimap.CursorDefault,
		HasLayers:   s.allLayers != nil,
		MarkerCount: len(s.markers.Markers()),
	}
	if s.state == StateReady {
		f := s.frame()
		v.Kind = s.surface.Kind
		v.CanPan = s.transform.CanPan(f)
		v.Cursor = minimap.Cursor(s.transform, f)
	}
	return v
}

func (s *Session) frame() transform.Frame {
	return transform.Frame{Viewport: s.viewport, Content: s.natural}
}

func (s *Session) ready() error {
	if s.state != StateReady {
		return fmt.Errorf("%w: session is %s", ErrNotReady, s.state)
	}
	return nil
}

// Surface возвращает текущую поверхность документа.
func (s *Session) Surface() (*source.Surface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.surface, nil
}

// ============================================================
// Transform controls
// ============================================================

const (
	ActionZoomIn        = "zoom_in"
	ActionZoomOut       = "zoom_out"
	ActionResetZoom     = "reset_zoom"
	ActionRotateLeft    = "rotate_left"
	ActionRotateRight   = "rotate_right"
	ActionResetRotation = "reset_rotation"
)

// Apply выполняет кнопку панели управления. Поверхность не перерисовывается.
func (s *Session) Apply(action string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return View{}, err
	}

	switch action {
	case ActionZoomIn:
		s.transform.ZoomIn()
	case ActionZoomOut:
		s.transform.ZoomOut()
	case ActionResetZoom:
		s.transform.ResetZoom()
	case ActionRotateLeft:
		s.transform.RotateLeft()
	case ActionRotateRight:
		s.transform.RotateRight()
	case ActionResetRotation:
		s.transform.ResetRotation()
	default:
		return View{}, fmt.Errorf("%w: %q", ErrBadAction, action)
	}
	return s.viewLocked(), nil
}

// Pan сдвигает документ, только если он не помещается в область просмотра.
func (s *Session) Pan(dx, dy float64) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return View{}, err
	}

	if s.transform.CanPan(s.frame()) {
		s.transform.Pan(dx, dy)
	}
	return s.viewLocked(), nil
}

// SetViewport задаёт размер области просмотра; допустимо в любом состоянии.
func (s *Session) SetViewport(size models.Size) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = size
	return s.viewLocked()
}

// ============================================================
// Minimap
// ============================================================

func (s *Session) Minimap() (minimap.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return minimap.State{}, err
	}
	return minimap.Compute(s.transform, s.frame(), float64(s.thumbnailWidth)), nil
}

// MinimapImage - миниатюра полного документа с рамкой видимой области.
// Сама миниатюра строится один раз на документ.
func (s *Session) MinimapImage() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return nil, err
	}

	if s.thumbnail == nil {
		thumb, err := minimap.Thumbnail(s.overview, s.thumbnailWidth)
		if err != nil {
			return nil, err
		}
		s.thumbnail = thumb
	}
	overlay := minimap.Overlay(s.transform, s.frame(), float64(s.thumbnail.Bounds().Dx()))
	return minimap.DrawOverlay(s.thumbnail, overlay), nil
}
