package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"picserve/internal/rendercache"
	"picserve/internal/selection"
	"picserve/internal/services"
	"picserve/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// DeliveryHandler serves the public image endpoint: it resolves the path
// to one stored image via the selection engine, renders it through the
// cache and answers with full conditional-GET semantics.
type DeliveryHandler struct {
	BaseHandler
	engine       *selection.Engine
	cache        *rendercache.Cache
	imageService *services.ImageService
	fallbackPath string
	maxAge       int
}

func NewDeliveryHandler(engine *selection.Engine, cache *rendercache.Cache, imageService *services.ImageService, fallbackPath string, maxAge int) *DeliveryHandler {
	return &DeliveryHandler{
		engine:       engine,
		cache:        cache,
		imageService: imageService,
		fallbackPath: fallbackPath,
		maxAge:       maxAge,
	}
}

func (h *DeliveryHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/img/*path", h.Deliver)
}

func (h *DeliveryHandler) Deliver(c *gin.Context) {
	req, err := parseDeliveryPath(c.Param("path"))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	// No match and missing files both fall back to the placeholder, which
	// flows through the same render pipeline. This is a normal outcome,
	// not an error.
	source := h.fallbackPath
	image, err := h.engine.Select(h.GetDB(c), selection.Request{
		Tags:      req.Tags,
		SizeKey:   req.SizeKey,
		Random:    req.Random,
		Index:     req.Index,
		ClientKey: c.ClientIP() + "|" + c.Request.UserAgent(),
	})
	switch {
	case err == nil:
		path := h.imageService.SourcePath(image)
		if _, statErr := os.Stat(path); statErr == nil {
			source = path
		}
	case errors.Is(err, selection.ErrNoCandidates):
		// keep the fallback
	default:
		apperrors.HandleError(c, err)
		return
	}

	result, err := h.cache.Resolve(source, req.Size)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	lastModified := result.LastModified.UTC().Truncate(time.Second)
	etag := `"` + result.ETag + `"`
	c.Header("Last-Modified", lastModified.Format(http.TimeFormat))
	c.Header("ETag", etag)
	c.Header("Cache-Control", fmt.Sprintf("public, max-age=%d", h.maxAge))

	if notModified(c.Request, lastModified, etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", result.Bytes)
}

// notModified applies If-None-Match and If-Modified-Since. The stored
// modification time is compared at second precision, matching the header
// format.
func notModified(r *http.Request, lastModified time.Time, etag string) bool {
	if match := r.Header.Get("If-None-Match"); match != "" {
		return strings.TrimSpace(match) == etag
	}
	if since := r.Header.Get("If-Modified-Since"); since != "" {
		if t, err := http.ParseTime(since); err == nil {
			return !lastModified.After(t)
		}
	}
	return false
}
