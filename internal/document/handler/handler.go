package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-site/portfolio-api/internal/apierr"
	"github.com/portfolio-site/portfolio-api/internal/document"
	"github.com/portfolio-site/portfolio-api/internal/document/service"
)

const (
	orderParam    = "_order"
	orderDirParam = "_orderDir"
)

// ConflictKeys accepts either a comma separated string or a JSON array of
// field names.
type ConflictKeys []string

func (k *ConflictKeys) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*k = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*k = list
	return nil
}

type upsertRequest struct {
	Payload    document.Document `json:"payload"`
	OnConflict ConflictKeys      `json:"onConflict"`
}

// RegisterRoutes mounts the document gateway under /api. guard runs before
// every write handler.
func RegisterRoutes(r gin.IRouter, svc *service.Service, guard gin.HandlerFunc) {
	h := &documentHandler{svc: svc}
	api := r.Group("/api")
	api.GET("/:collection", h.list)
	api.GET("/:collection/:id", h.get)
	api.POST("/:collection", guard, h.insert)
	api.POST("/:collection/upsert", guard, h.upsert)
	api.PUT("/:collection/:id", guard, h.update)
	api.DELETE("/:collection/:id", guard, h.delete)
}

type documentHandler struct {
	svc *service.Service
}

// parseQuery turns list query parameters into a document.Query. Parameters
// starting with "_" are reserved for list controls.
func parseQuery(c *gin.Context) (document.Query, error) {
	var q document.Query
	for key, values := range c.Request.URL.Query() {
		switch {
		case key == orderParam:
			q.OrderBy = values[0]
		case key == orderDirParam:
			switch strings.ToLower(values[0]) {
			case "asc":
				q.Asc = true
			case "desc", "":
			default:
				return q, apierr.Invalid("%s must be asc or desc", orderDirParam)
			}
		case strings.HasPrefix(key, "_"):
			return q, apierr.Invalid("unknown list control %q", key)
		case document.IsReserved(key):
			return q, apierr.Invalid("cannot filter on %q", key)
		default:
			if q.Filter == nil {
				q.Filter = map[string][]any{}
			}
			for _, v := range values {
				q.Filter[key] = append(q.Filter[key], document.FilterCandidates(v)...)
			}
		}
	}
	return q, nil
}

func bindDocument(c *gin.Context) (document.Document, error) {
	var d document.Document
	if err := c.ShouldBindJSON(&d); err != nil {
		return nil, apierr.Wrap(apierr.InvalidArgument, "request body must be a JSON object", err)
	}
	return d, nil
}

func (h *documentHandler) list(c *gin.Context) {
	q, err := parseQuery(c)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	docs, err := h.svc.List(c.Request.Context(), c.Param("collection"), q)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *documentHandler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *documentHandler) insert(c *gin.Context) {
	fields, err := bindDocument(c)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	d, err := h.svc.Insert(c.Request.Context(), c.Param("collection"), fields)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *documentHandler) upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Write(c, apierr.Wrap(apierr.InvalidArgument, "invalid upsert body", err))
		return
	}
	if req.Payload == nil {
		apierr.Write(c, apierr.Invalid("Missing payload"))
		return
	}
	d, err := h.svc.Upsert(c.Request.Context(), c.Param("collection"), req.Payload, req.OnConflict)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *documentHandler) update(c *gin.Context) {
	fields, err := bindDocument(c)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	d, err := h.svc.Update(c.Request.Context(), c.Param("collection"), c.Param("id"), fields)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *documentHandler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
