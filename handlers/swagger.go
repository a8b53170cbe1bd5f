package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the API documentation endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>portfolio-api Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "portfolio-api", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "code": {"type":"string"} } },
      "User": { "type": "object", "properties": { "id": {"type":"string"}, "email": {"type":"string"}, "name": {"type":"string"}, "role": {"type":"string"} } },
      "AuthResponse": { "type": "object", "properties": { "user": {"$ref":"#/components/schemas/User"}, "token": {"type":"string"}, "expiresAt": {"type":"string","format":"date-time"} } },
      "Document": { "type": "object", "additionalProperties": true, "properties": { "id": {"type":"string"}, "created_at": {"type":"string","format":"date-time"}, "updated_at": {"type":"string","format":"date-time"} } },
      "PageViews": { "type": "object", "properties": { "id": {"type":"string"}, "page": {"type":"string"}, "date": {"type":"string"}, "views": {"type":"integer"}, "created_at": {"type":"string","format":"date-time"} } }
    }
  },
  "paths": {
    "/auth/register": {
      "post": {
        "summary": "Create an account",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"},"name":{"type":"string"}}}}}},
        "responses": { "200": { "description": "user and token" }, "400": { "description": "missing fields" }, "409": { "description": "email already registered" } }
      }
    },
    "/auth/login": {
      "post": {
        "summary": "Exchange credentials for a token",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"email":{"type":"string"},"password":{"type":"string"}}}}}},
        "responses": { "200": { "description": "user, token and expiry" }, "401": { "description": "invalid credentials" } }
      }
    },
    "/auth/me": {
      "get": { "summary": "Current user", "security": [{"bearer": []}], "responses": { "200": { "description": "user" }, "401": { "description": "missing or invalid token" }, "404": { "description": "user not found" } } }
    },
    "/api/{collection}": {
      "get": { "summary": "List documents, newest first. Other query parameters are equality filters.", "parameters": [{"name":"_order","in":"query","schema":{"type":"string"}},{"name":"_orderDir","in":"query","schema":{"type":"string","enum":["asc","desc"]}}], "responses": { "200": { "description": "documents" } } },
      "post": { "summary": "Insert a document", "security": [{"bearer": []}], "responses": { "200": { "description": "stored document" } } }
    },
    "/api/{collection}/upsert": {
      "post": {
        "summary": "Update the document matching the conflict keys or insert",
        "security": [{"bearer": []}],
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"payload":{"$ref":"#/components/schemas/Document"},"onConflict":{"oneOf":[{"type":"string"},{"type":"array","items":{"type":"string"}}]}}}}}},
        "responses": { "200": { "description": "stored document" }, "400": { "description": "missing payload" } }
      }
    },
    "/api/{collection}/{id}": {
      "get": { "summary": "Get a document", "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "put": { "summary": "Merge fields into a document", "security": [{"bearer": []}], "responses": { "200": { "description": "updated document" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a document", "security": [{"bearer": []}], "responses": { "200": { "description": "{\"ok\":true}" }, "404": { "description": "not found" } } }
    },
    "/rpc/{function}": {
      "post": {
        "summary": "Call a named server function (increment_page_views)",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"page_name":{"type":"string"}}}}}},
        "responses": { "200": { "description": "post-increment counter" }, "400": { "description": "page_name required" }, "404": { "description": "RPC function not found" } }
      }
    },
    "/media": {
      "post": { "summary": "Upload an image (multipart field file)", "security": [{"bearer": []}], "responses": { "201": { "description": "object key and url" } } }
    },
    "/media/{key}": {
      "get": { "summary": "Redirect to a presigned download URL", "responses": { "302": { "description": "redirect" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
