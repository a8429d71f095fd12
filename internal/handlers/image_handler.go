package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"picserve/internal/services"
	"picserve/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// ImageHandler exposes the write side of the catalog: upload, rotate and
// soft delete.
type ImageHandler struct {
	BaseHandler
	imageService *services.ImageService
}

func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

func (h *ImageHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/images", h.Upload)
	api.POST("/images/:id/rotate", h.Rotate)
	api.DELETE("/images/:id", h.Delete)
}

// uploadPayload is the JSON "payload" form field accompanying the file.
type uploadPayload struct {
	Tags []string `json:"tags"`
}

func (h *ImageHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("file upload error"))
		return
	}

	raw := c.PostForm("payload")
	if raw == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("payload not provided"))
		return
	}
	var payload uploadPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || payload.Tags == nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("tags not provided or invalid"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}

	image, err := h.imageService.Receive(h.GetDB(c), fileHeader.Filename, data, payload.Tags)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, image)
}

type rotateRequest struct {
	Direction string `json:"direction" binding:"required"`
}

func (h *ImageHandler) Rotate(c *gin.Context) {
	id, ok := h.imageID(c)
	if !ok {
		return
	}

	var req rotateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("image_id and direction required"))
		return
	}
	direction := strings.ToUpper(req.Direction)
	if direction != "R" && direction != "L" {
		apperrors.HandleError(c, apperrors.NewBadRequestError(`direction must be "R" or "L"`))
		return
	}

	if err := h.imageService.Rotate(h.GetDB(c), id, direction == "R"); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ImageHandler) Delete(c *gin.Context) {
	id, ok := h.imageID(c)
	if !ok {
		return
	}
	if err := h.imageService.Delete(h.GetDB(c), id); err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ImageHandler) imageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("invalid image id"))
		return 0, false
	}
	return uint(id), true
}
