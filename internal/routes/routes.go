package routes

import (
	"picserve/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires all HTTP routes. Delivery lives at the root; the
// management API under /api/v1.
func RegisterRoutes(r *gin.Engine, appHandlers *handlers.AppHandlers) {
	appHandlers.Delivery.RegisterRoutes(r)

	api := r.Group("/api/v1")
	{
		appHandlers.Images.RegisterRoutes(api)
		appHandlers.Tags.RegisterRoutes(api)
	}
}
