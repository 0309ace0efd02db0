package proxy

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ============================================================
// Proxy Handler
// ============================================================

// Proxy пересылает запросы шлюза в сервис просмотра.
type Proxy struct {
	upstream string
	prefix   string
	client   *http.Client
	log      *zap.Logger
}

// New создаёт прокси: путь запроса без prefix дописывается к upstream.
func New(upstream, prefix string, timeout time.Duration, log *zap.Logger) *Proxy {
	return &Proxy{
		upstream: strings.TrimRight(upstream, "/"),
		prefix:   prefix,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Handler проксирует любой метод и путь под prefix.
func (p *Proxy) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		return p.Forward(c, p.target(c))
	}
}

// Forward проксирует запрос по переданному URL с учётом multipart/raw.
func (p *Proxy) Forward(c fiber.Ctx, targetURL string) error {
	contentType := c.Get("Content-Type")
	p.log.Debug("proxy request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("content_type", contentType),
		zap.Int("content_length", len(c.Body())),
		zap.String("target", targetURL),
	)

	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return p.sendRaw(c, targetURL, contentType)
	}
	return p.sendMultipart(c, targetURL)
}

func (p *Proxy) target(c fiber.Ctx) string {
	path := strings.TrimPrefix(c.Path(), p.prefix)
	if path == "" {
		path = "/"
	}
	target := p.upstream + path
	if qs := c.Request().URI().QueryString(); len(qs) > 0 {
		target += "?" + string(qs)
	}
	return target
}

func (p *Proxy) sendRaw(c fiber.Ctx, targetURL, contentType string) error {
	req, err := http.NewRequestWithContext(c.Context(), c.Method(), targetURL, bytes.NewReader(c.Body()))
	if err != nil {
		p.log.Error("build request", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return p.do(c, req)
}

func (p *Proxy) sendMultipart(c fiber.Ctx, targetURL string) error {
	form, err := c.MultipartForm()
	if err != nil {
		p.log.Warn("parse multipart", zap.Error(err))
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid multipart data"})
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, files := range form.File {
		for _, fileHeader := range files {
			if err := copyPart(writer, key, fileHeader); err != nil {
				p.log.Warn("copy multipart file", zap.String("file", fileHeader.Filename), zap.Error(err))
			}
		}
	}
	for key, values := range form.Value {
		for _, value := range values {
			_ = writer.WriteField(key, value)
		}
	}
	if err := writer.Close(); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}

	req, err := http.NewRequestWithContext(c.Context(), c.Method(), targetURL, bytes.NewReader(body.Bytes()))
	if err != nil {
		p.log.Error("build multipart request", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "proxy failed"})
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return p.do(c, req)
}

func copyPart(writer *multipart.Writer, key string, fileHeader *multipart.FileHeader) error {
	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, key, fileHeader.Filename))
	h.Set("Content-Type", fileHeader.Header.Get("Content-Type"))

	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

func (p *Proxy) do(c fiber.Ctx, req *http.Request) error {
	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error("upstream unreachable", zap.String("target", req.URL.String()), zap.Error(err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to reach upstream service"})
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.log.Error("read upstream response", zap.Error(err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "invalid upstream response"})
	}

	for key, values := range resp.Header {
		if len(values) > 0 {
			c.Set(key, values[0])
		}
	}
	c.Status(resp.StatusCode)
	return c.Send(data)
}

// Ping проверяет, что upstream отвечает на /health/ready.
func (p *Proxy) Ping(c fiber.Ctx) error {
	req, err := http.NewRequestWithContext(c.Context(), http.MethodGet, p.upstream+"/health/ready", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	return nil
}
