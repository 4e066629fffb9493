package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/lexsite/lexsite/backend/go-services/internal/backup"
	"github.com/lexsite/lexsite/backend/go-services/internal/config"
	"github.com/lexsite/lexsite/backend/go-services/internal/document"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/handler"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/repository"
	"github.com/lexsite/lexsite/backend/go-services/internal/document/service"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
)

// Collections holds the document stores and services of the site's content
// collections.
type Collections struct {
	Resources    *repository.BlobRepo[*document.Resource]
	Testimonials *repository.BlobRepo[*document.Testimonial]

	resourceSvc    service.Service[*document.Resource]
	testimonialSvc service.Service[*document.Testimonial]
}

// NewCollections builds both collections on the given blob store.
func NewCollections(store storage.BlobStore, fetcher storage.Fetcher, locker repository.Locker, cfg config.StoreConfig) *Collections {
	ropts := repository.Options{WriteAttempts: cfg.WriteAttempts, WriteBackoff: cfg.WriteBackoff}
	sopts := service.Options{Attempts: cfg.MutationAttempts, Backoff: cfg.MutationBackoff}

	rspec := document.ResourcesSpec()
	tspec := document.TestimonialsSpec()
	c := &Collections{
		Resources:    repository.NewBlobRepo(store, fetcher, locker, rspec, ropts),
		Testimonials: repository.NewBlobRepo(store, fetcher, locker, tspec, ropts),
	}
	c.resourceSvc = service.New[*document.Resource](c.Resources, rspec, sopts)
	c.testimonialSvc = service.New[*document.Testimonial](c.Testimonials, tspec, sopts)
	return c
}

// Register mounts /resources and /testimonials on rg. Mutations run behind admin.
func (c *Collections) Register(rg *gin.RouterGroup, admin ...gin.HandlerFunc) {
	handler.RegisterCollectionRoutes(rg, document.ResourcesSpec(), c.resourceSvc, admin...)
	handler.RegisterCollectionRoutes(rg, document.TestimonialsSpec(), c.testimonialSvc, admin...)
}

// Backup returns the collections in backup order.
func (c *Collections) Backup() []backup.Collection {
	return []backup.Collection{c.Resources, c.Testimonials}
}
