// Package rpc exposes a fixed set of named server functions over HTTP.
package rpc

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portfolio-site/portfolio-api/internal/analytics"
	"github.com/portfolio-site/portfolio-api/internal/apierr"
)

// Function names a callable server function.
type Function string

const (
	IncrementPageViews Function = "increment_page_views"
)

// Handler runs a function against its raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// PageViewCounter is the part of the analytics service the dispatcher needs.
type PageViewCounter interface {
	IncrementPageView(ctx context.Context, page string) (analytics.Record, error)
}

// Dispatcher maps function names to handlers. The table is fixed at
// construction.
type Dispatcher struct {
	table map[Function]Handler
}

func NewDispatcher(counter PageViewCounter) *Dispatcher {
	return &Dispatcher{table: map[Function]Handler{
		IncrementPageViews: incrementPageViews(counter),
	}}
}

// Call runs fn. Unknown names fail with NotFound.
func (d *Dispatcher) Call(ctx context.Context, fn Function, args json.RawMessage) (any, error) {
	h, ok := d.table[fn]
	if !ok {
		return nil, apierr.Missing("RPC function not found")
	}
	return h(ctx, args)
}

type pageViewArgs struct {
	PageName string `json:"page_name"`
}

func incrementPageViews(counter PageViewCounter) Handler {
	return func(ctx context.Context, args json.RawMessage) (any, error) {
		var in pageViewArgs
		if len(args) > 0 {
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, apierr.Wrap(apierr.InvalidArgument, "invalid arguments", err)
			}
		}
		if in.PageName == "" {
			return nil, apierr.Invalid("page_name required")
		}
		return counter.IncrementPageView(ctx, in.PageName)
	}
}

// RegisterRoutes mounts POST /rpc/:function.
func RegisterRoutes(r gin.IRouter, d *Dispatcher) {
	r.POST("/rpc/:function", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			apierr.Write(c, apierr.Wrap(apierr.InvalidArgument, "unreadable body", err))
			return
		}
		out, err := d.Call(c.Request.Context(), Function(c.Param("function")), body)
		if err != nil {
			apierr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	})
}
