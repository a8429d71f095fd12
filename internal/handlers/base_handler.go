package handlers

import (
	"picserve/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BaseHandler is embedded by every handler for shared plumbing.
type BaseHandler struct{}

// GetDB extracts the *gorm.DB (pool or injected transaction) from the gin
// context. DBMiddleware guarantees the key is set; a miss means the router
// is misconfigured, which is unrecoverable.
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	val, ok := c.Get(string(contextkeys.DBContextKey))
	if !ok {
		panic("DBMiddleware did not set the db key")
	}
	db, ok := val.(*gorm.DB)
	if !ok {
		panic("db in context has incorrect type")
	}
	return db
}
