package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/internal/document"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/service"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
)

type collectionHandler[T document.Entity] struct {
	spec document.Spec[T]
	svc  service.Service[T]
}

// RegisterCollectionRoutes mounts the routes of one collection under
// rg/<collection name>. Mutating routes run behind the admin handlers.
func RegisterCollectionRoutes[T document.Entity](rg *gin.RouterGroup, spec document.Spec[T], svc service.Service[T], admin ...gin.HandlerFunc) {
	h := &collectionHandler[T]{spec: spec, svc: svc}
	g := rg.Group("/" + spec.Name)
	g.GET("", h.getDocument)
	g.GET("/published", h.getPublished)
	g.POST("", withAdmin(admin, h.create)...)
	g.PUT("", withAdmin(admin, h.update)...)
	g.DELETE("", withAdmin(admin, h.delete)...)
	g.POST("/publish", withAdmin(admin, h.publish)...)
}

func withAdmin(admin []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(admin)+1)
	out = append(out, admin...)
	return append(out, h)
}

func (h *collectionHandler[T]) getDocument(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	doc, err := h.svc.Document(c.Request.Context())
	if err != nil {
		h.fail(c, "load", err)
		return
	}
	items := doc.Items
	if items == nil {
		items = []T{}
	}
	resp := gin.H{"items": items, "version": doc.Version}
	if h.spec.IndexPublished {
		resp["publishedIndex"] = doc.PublishedIDs()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *collectionHandler[T]) getPublished(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	items, err := h.svc.Published(c.Request.Context())
	if err != nil {
		h.fail(c, "load", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *collectionHandler[T]) create(c *gin.Context) {
	item := h.spec.New()
	if err := c.ShouldBindJSON(item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	created, err := h.svc.Create(c.Request.Context(), item)
	if err != nil {
		h.fail(c, "create", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, h.spec.Singular: created})
}

func (h *collectionHandler[T]) update(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	id, _ := body["id"].(string)
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": h.spec.Singular + " id is required"})
		return
	}
	delete(body, "id")
	updated, err := h.svc.Update(c.Request.Context(), id, body)
	if err != nil {
		h.fail(c, "update", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, h.spec.Singular: updated})
}

func (h *collectionHandler[T]) delete(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": h.spec.Singular + " id is required"})
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *collectionHandler[T]) publish(c *gin.Context) {
	var req struct {
		ID      string `json:"id" binding:"required"`
		Publish *bool  `json:"publish" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "id and publish are required"})
		return
	}
	out, err := h.svc.Publish(c.Request.Context(), req.ID, *req.Publish)
	if err != nil {
		h.fail(c, "publish", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, h.spec.Singular: out})
}

// fail maps service errors to responses. Store failures are logged and
// answered with a generic message.
func (h *collectionHandler[T]) fail(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, document.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": h.spec.Singular + " not found"})
	case errors.Is(err, document.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	default:
		logger.Errorf("%s %s: %v", op, h.spec.Singular, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to " + op + " " + h.spec.Singular})
	}
}
