package media

import (
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
)

const (
	MaxUploadBytes = 10 << 20
	presignExpiry  = 15 * time.Minute
)

var allowedTypes = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"application/pdf": ".pdf",
}

// RegisterRoutes mounts POST /media (behind guard) and GET /media/*key.
func RegisterRoutes(r gin.IRouter, store Store, guard gin.HandlerFunc) {
	h := &mediaHandler{store: store, now: time.Now}
	r.POST("/media", guard, h.upload)
	r.GET("/media/*key", h.redirect)
}

type mediaHandler struct {
	store Store
	now   func() time.Time
}

func (h *mediaHandler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		apierr.Write(c, apierr.Wrap(apierr.InvalidArgument, "multipart field \"file\" required", err))
		return
	}
	if fh.Size > MaxUploadBytes {
		apierr.Write(c, apierr.Invalid("file larger than %d bytes", MaxUploadBytes))
		return
	}
	contentType := strings.TrimSpace(strings.Split(fh.Header.Get("Content-Type"), ";")[0])
	ext, ok := allowedTypes[contentType]
	if !ok {
		apierr.Write(c, apierr.Invalid("unsupported content type %q", contentType))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apierr.Write(c, apierr.Wrap(apierr.InvalidArgument, "unreadable upload", err))
		return
	}
	defer f.Close()

	key := path.Join("uploads", h.now().UTC().Format("2006/01"), uuid.NewString()+ext)
	if err := h.store.Upload(c.Request.Context(), key, f, fh.Size, contentType); err != nil {
		apierr.Write(c, apierr.Storage(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key, "url": "/media/" + key})
}

func (h *mediaHandler) redirect(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" || strings.Contains(key, "..") {
		apierr.Write(c, apierr.Invalid("invalid media key"))
		return
	}
	u, err := h.store.PresignedURL(c.Request.Context(), key, presignExpiry)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			apierr.Write(c, apierr.Missing("Not found"))
			return
		}
		apierr.Write(c, apierr.Storage(err))
		return
	}
	c.Redirect(http.StatusFound, u)
}
