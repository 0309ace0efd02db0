package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"time"

	"drawing-viewer/internal/viewer/models"
	"drawing-viewer/internal/viewer/service"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// maxWait ограничивает ожидание загрузки при ?wait=true.
const maxWait = 60 * time.Second

// ============================================================
// Viewer Handler
// ============================================================

type ViewerHandler struct {
	viewer *service.Viewer
	log    *zap.Logger
}

func NewViewerHandler(viewer *service.Viewer, log *zap.Logger) *ViewerHandler {
	return &ViewerHandler{viewer: viewer, log: log}
}

// Register вешает маршруты сервиса на router.
func (h *ViewerHandler) Register(r fiber.Router) {
	r.Get("/icons", h.Icons)
	r.Get("/documents", h.ListDocuments)

	r.Post("/sessions", h.CreateSession)
	r.Get("/sessions/:id", h.GetSession)
	r.Delete("/sessions/:id", h.DeleteSession)

	r.Post("/sessions/:id/document", h.UploadDocument)
	r.Post("/sessions/:id/document/:hash", h.ReopenDocument)
	r.Get("/sessions/:id/surface", h.GetSurface)

	r.Post("/sessions/:id/transform", h.Transform)
	r.Post("/sessions/:id/pan", h.Pan)
	r.Put("/sessions/:id/viewport", h.SetViewport)
	r.Get("/sessions/:id/minimap", h.GetMinimap)
	r.Get("/sessions/:id/minimap.png", h.GetMinimapPNG)

	r.Get("/sessions/:id/layers", h.GetLayers)
	r.Put("/sessions/:id/layers", h.SetLayers)
	r.Put("/sessions/:id/layers/all", h.SetAllLayers)
	r.Put("/sessions/:id/layers/:name", h.SetLayer)
	r.Get("/sessions/:id/layers/:name/preview.png", h.GetLayerPreview)

	r.Get("/sessions/:id/markers", h.ListMarkers)
	r.Post("/sessions/:id/markers", h.DropMarker)
	r.Post("/sessions/:id/markers/hit", h.HitMarker)
	r.Post("/sessions/:id/markers/:markerId/drag", h.DragMarker)
}

type transformRequest struct {
	Action string `json:"action" validate:"required,oneof=zoom_in zoom_out reset_zoom rotate_left rotate_right reset_rotation"`
}

type panRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type viewportRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type layersRequest struct {
	Visible []string `json:"visible" validate:"dive,required"`
}

type visibilityRequest struct {
	Visible *bool `json:"visible" validate:"required"`
}

type dropRequest struct {
	IconRef string  `json:"iconRef" validate:"required"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

type pointRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type dragRequest struct {
	Phase string  `json:"phase" validate:"required,oneof=grab move release"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// ============================================================
// Sessions & documents
// ============================================================

func (h *ViewerHandler) Icons(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"icons": h.viewer.Palette()})
}

func (h *ViewerHandler) ListDocuments(c fiber.Ctx) error {
	docs, err := h.viewer.Documents(c.Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"documents": docs})
}

func (h *ViewerHandler) CreateSession(c fiber.Ctx) error {
	s := h.viewer.CreateSession()
	h.log.Info("session created", zap.String("session", s.ID))
	return c.Status(http.StatusCreated).JSON(s.View())
}

func (h *ViewerHandler) GetSession(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s.View())
}

func (h *ViewerHandler) DeleteSession(c fiber.Ctx) error {
	if err := h.viewer.CloseSession(c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(http.StatusNoContent)
}

// UploadDocument принимает файл (multipart, поле file) и запускает загрузку.
func (h *ViewerHandler) UploadDocument(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "file required"})
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to open file"})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "failed to read file"})
	}

	if err := h.viewer.Load(s, fileHeader.Filename, data); err != nil {
		return h.fail(c, err)
	}
	return h.accepted(c, s)
}

func (h *ViewerHandler) ReopenDocument(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.viewer.Reopen(c.Context(), s, c.Params("hash")); err != nil {
		return h.fail(c, err)
	}
	return h.accepted(c, s)
}

// accepted отвечает 202 сразу или, при ?wait=true, ждёт окончания загрузки.
func (h *ViewerHandler) accepted(c fiber.Ctx, s *service.Session) error {
	if c.Query("wait") != "true" {
		return c.Status(http.StatusAccepted).JSON(s.View())
	}

	ctx, cancel := context.WithTimeout(c.Context(), maxWait)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		return c.Status(http.StatusAccepted).JSON(s.View())
	}
	return c.JSON(s.View())
}

func (h *ViewerHandler) GetSurface(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	surface, err := s.Surface()
	if err != nil {
		return h.fail(c, err)
	}

	if surface.Markup != nil {
		c.Set("Content-Type", surface.ContentType())
		return c.Send(surface.Markup)
	}
	return h.sendPNG(c, surface.Bitmap)
}

// ============================================================
// View controls
// ============================================================

func (h *ViewerHandler) Transform(c fiber.Ctx) error {
	var req transformRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := s.Apply(req.Action)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *ViewerHandler) Pan(c fiber.Ctx) error {
	var req panRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	view, err := s.Pan(req.DX, req.DY)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *ViewerHandler) SetViewport(c fiber.Ctx) error {
	var req viewportRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(s.SetViewport(models.Size{Width: req.Width, Height: req.Height}))
}

func (h *ViewerHandler) GetMinimap(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	state, err := s.Minimap()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(state)
}

func (h *ViewerHandler) GetMinimapPNG(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	img, err := s.MinimapImage()
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendPNG(c, img)
}

// ============================================================
// Layers
// ============================================================

func (h *ViewerHandler) GetLayers(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	layers, err := s.Layers()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(layers)
}

func (h *ViewerHandler) SetLayers(c fiber.Ctx) error {
	var req layersRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	layers, err := s.SetLayers(c.Context(), req.Visible)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(layers)
}

func (h *ViewerHandler) SetAllLayers(c fiber.Ctx) error {
	var req visibilityRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	layers, err := s.SetAllLayers(c.Context(), *req.Visible)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(layers)
}

func (h *ViewerHandler) SetLayer(c fiber.Ctx) error {
	var req visibilityRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	layers, err := s.SetLayer(c.Context(), layerName(c), *req.Visible)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(layers)
}

func (h *ViewerHandler) GetLayerPreview(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	img, err := s.LayerPreview(c.Context(), layerName(c))
	if err != nil {
		return h.fail(c, err)
	}
	return h.sendPNG(c, img)
}

// ============================================================
// Markers
// ============================================================

func (h *ViewerHandler) ListMarkers(c fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	markers, err := s.Markers()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"markers": markers})
}

func (h *ViewerHandler) DropMarker(c fiber.Ctx) error {
	var req dropRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	m, err := s.Drop(req.IconRef, models.Point{X: req.X, Y: req.Y})
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(http.StatusCreated).JSON(m)
}

func (h *ViewerHandler) HitMarker(c fiber.Ctx) error {
	var req pointRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	m, ok, err := s.Hit(models.Point{X: req.X, Y: req.Y})
	if err != nil {
		return h.fail(c, err)
	}
	if !ok {
		return c.JSON(fiber.Map{"hit": false})
	}
	return c.JSON(fiber.Map{"hit": true, "marker": m})
}

func (h *ViewerHandler) DragMarker(c fiber.Ctx) error {
	var req dragRequest
	if err := bind(c, &req); err != nil {
		return badRequest(c, err)
	}
	s, err := h.session(c)
	if err != nil {
		return h.fail(c, err)
	}
	m, err := s.Drag(c.Params("markerId"), req.Phase, models.Point{X: req.X, Y: req.Y})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(m)
}

// ============================================================
// Helpers
// ============================================================

func (h *ViewerHandler) session(c fiber.Ctx) (*service.Session, error) {
	return h.viewer.Session(c.Params("id"))
}

func (h *ViewerHandler) sendPNG(c fiber.Ctx, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return h.fail(c, fmt.Errorf("encode png: %w", err))
	}
	c.Set("Content-Type", "image/png")
	return c.Send(buf.Bytes())
}

// layerName декодирует имя слоя из пути: в DXF имена слоёв могут содержать пробелы.
func layerName(c fiber.Ctx) string {
	name := c.Params("name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func zapRequest(c fiber.Ctx, err error) []zap.Field {
	return []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	}
}
