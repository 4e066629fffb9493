package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexsite/lexsite/backend/go-services/internal/storage"
	"github.com/lexsite/lexsite/backend/go-services/pkg/logger"
)

// allowedUploadTypes are matched against the content, not the client's header.
var allowedUploadTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"video/mp4",
	"video/webm",
	"application/pdf",
}

// multipart framing on top of the file itself
const multipartOverhead = 64 << 10

// UploadHandler stores admin uploads (resource images, videos, documents) in
// the blob store.
type UploadHandler struct {
	store    storage.BlobStore
	maxBytes int64
}

func NewUploadHandler(store storage.BlobStore, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &UploadHandler{store: store, maxBytes: maxBytes}
}

// Register mounts POST /upload behind the admin handlers.
func (h *UploadHandler) Register(rg *gin.RouterGroup, admin ...gin.HandlerFunc) {
	rg.POST("/upload", append(append([]gin.HandlerFunc{}, admin...), h.Upload)...)
}

// Upload accepts a multipart file in field "file".
func (h *UploadHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is required"})
		return
	}
	if fh.Size > h.maxBytes {
		h.tooLarge(c)
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "cannot read file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "cannot read file"})
		return
	}
	if int64(len(data)) > h.maxBytes {
		h.tooLarge(c)
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "file is empty"})
		return
	}

	mt := mimetype.Detect(data)
	if !allowedType(mt) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"success": false, "error": fmt.Sprintf("file type %s is not allowed", mt.String())})
		return
	}

	key := "uploads/" + uuid.NewString() + "-" + sanitizeFilename(fh.Filename, mt.Extension())
	res, err := h.store.Put(c.Request.Context(), key, data, storage.PutOptions{
		ContentType:  mt.String(),
		CacheControl: "public, max-age=31536000, immutable",
	})
	if err != nil {
		logger.Errorf("upload %s: %v", key, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to store file"})
		return
	}
	logger.Infof("uploaded %s (%s, %d bytes)", res.Pathname, mt.String(), len(data))
	c.JSON(http.StatusOK, gin.H{"success": true, "url": res.URL, "pathname": res.Pathname, "contentType": mt.String()})
}

func (h *UploadHandler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": fmt.Sprintf("file exceeds %d bytes", h.maxBytes)})
}

func allowedType(mt *mimetype.MIME) bool {
	for _, t := range allowedUploadTypes {
		if mt.Is(t) {
			return true
		}
	}
	return false
}

// sanitizeFilename keeps [a-z0-9._-] of the base name. ext is used when
// nothing usable is left.
func sanitizeFilename(name, ext string) string {
	name = strings.ToLower(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	var b strings.Builder
	dash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-.")
	if len(out) > 100 {
		out = out[len(out)-100:]
	}
	if out == "" {
		return "file" + ext
	}
	return out
}
