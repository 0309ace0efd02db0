package handlers

import (
	"errors"
	"net/http"

	"drawing-viewer/internal/viewer/annotation"
	"drawing-viewer/internal/viewer/minimap"
	"drawing-viewer/internal/viewer/service"
	"drawing-viewer/internal/viewer/source"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Validation
// ============================================================

// StructValidator подключает go-playground/validator к Bind() в fiber.
type StructValidator struct {
	validate *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{validate: validator.New()}
}

func (v *StructValidator) Validate(out any) error {
	return v.validate.Struct(out)
}

// ============================================================
// Error mapping
// ============================================================

func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrSourceNotStored),
		errors.Is(err, annotation.ErrMarkerNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotReady),
		errors.Is(err, annotation.ErrNoDrag),
		errors.Is(err, minimap.ErrNoSurface):
		return http.StatusConflict
	case errors.Is(err, source.ErrUnsupportedDocumentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, service.ErrNoLayers),
		errors.Is(err, service.ErrUnknownLayer),
		errors.Is(err, service.ErrUnknownIcon),
		errors.Is(err, service.ErrBadAction),
		errors.Is(err, service.ErrBadPhase):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *ViewerHandler) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zapRequest(c, err)...)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

var errEmptyBody = errors.New("empty body")

// bind разбирает JSON-тело; теги validate проверяет StructValidator приложения.
func bind(c fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return errEmptyBody
	}
	return c.Bind().JSON(out)
}

func badRequest(c fiber.Ctx, err error) error {
	return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}
