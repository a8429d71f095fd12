package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"picserve/internal/repositories"
	"picserve/internal/services"
	"picserve/pkg/apperrors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TagHandler exposes tag management and tag statistics.
type TagHandler struct {
	BaseHandler
	images repositories.ImageRepository
	tags   repositories.TagRepository
}

func NewTagHandler(images repositories.ImageRepository, tags repositories.TagRepository) *TagHandler {
	return &TagHandler{images: images, tags: tags}
}

func (h *TagHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/images/:id/tags", h.AddTag)
	api.GET("/images/:id/tags", h.ListImageTags)
	api.GET("/tags", h.ListTags)
	api.POST("/tags/count", h.CountByTags)
}

type addTagRequest struct {
	Tag string `json:"tag" binding:"required"`
}

func (h *TagHandler) AddTag(c *gin.Context) {
	id, ok := h.tagImageID(c)
	if !ok {
		return
	}

	var req addTagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("tag is required"))
		return
	}
	title := services.NormalizeTag(req.Tag)
	if title == "" {
		apperrors.HandleError(c, apperrors.NewBadRequestError("tag cannot be empty"))
		return
	}

	db := h.GetDB(c)
	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := h.images.FindByID(tx, id); err != nil {
			return err
		}
		tag, err := h.tags.GetOrCreate(tx, title)
		if err != nil {
			return err
		}
		return h.tags.Link(tx, id, tag.ID)
	})
	if err != nil {
		h.handleImageError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *TagHandler) ListImageTags(c *gin.Context) {
	id, ok := h.tagImageID(c)
	if !ok {
		return
	}

	db := h.GetDB(c)
	if _, err := h.images.FindByID(db, id); err != nil {
		h.handleImageError(c, err)
		return
	}
	titles, err := h.tags.TitlesForImage(db, id)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, titles)
}

func (h *TagHandler) ListTags(c *gin.Context) {
	counts, err := h.tags.ListWithCounts(h.GetDB(c))
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

type countRequest struct {
	Tags []string `json:"tags"`
}

// CountByTags reports how many live images carry every given tag; an
// empty list counts the whole catalog.
func (h *TagHandler) CountByTags(c *gin.Context) {
	var req countRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Tags == nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("tags list is required"))
		return
	}

	filter := make([]string, 0, len(req.Tags))
	for _, tag := range req.Tags {
		if title := services.NormalizeTag(tag); title != "" {
			filter = append(filter, title)
		}
	}

	count, err := h.images.CountByTags(h.GetDB(c), filter)
	if err != nil {
		apperrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counter": count})
}

func (h *TagHandler) tagImageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("invalid image id"))
		return 0, false
	}
	return uint(id), true
}

func (h *TagHandler) handleImageError(c *gin.Context, err error) {
	if errors.Is(err, repositories.ErrImageNotFound) {
		apperrors.HandleError(c, apperrors.ErrNotFound(err))
		return
	}
	apperrors.HandleError(c, err)
}
