package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
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
    <title>lexsite API - Swagger</title>
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

// Admin routes take "Authorization: Bearer <accessToken>".
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "lexsite", "version": "v1.0.0" },
  "components": { "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer" } } },
  "paths": {
    "/auth/login": {
      "post": { "summary": "Admin login", "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["username","password"],"properties":{"username":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "accessToken and refreshToken" }, "401": { "description": "invalid credentials" }, "503": { "description": "login not configured" } } }
    },
    "/auth/refresh": {
      "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new access token" }, "401": { "description": "invalid refresh" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Drop the refresh token and revoke the access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" } } }
    },
    "/api/resources": {
      "get": { "summary": "Resources document (items, version, publishedIndex)", "responses": { "200": { "description": "document" }, "500": { "description": "store unavailable" } } },
      "post": { "summary": "Create resource", "security": [{"bearer":[]}], "responses": { "201": { "description": "created" }, "400": { "description": "invalid" } } },
      "put": { "summary": "Update resource (body: id plus changed fields)", "security": [{"bearer":[]}], "responses": { "200": { "description": "updated" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete resource", "security": [{"bearer":[]}], "parameters": [{"name":"id","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "deleted" } } }
    },
    "/api/resources/published": { "get": { "summary": "Published resources", "responses": { "200": { "description": "items" } } } },
    "/api/resources/publish": { "post": { "summary": "Publish or unpublish a resource", "security": [{"bearer":[]}], "requestBody": { "content": { "application/json": { "schema": {"type":"object","required":["id","publish"],"properties":{"id":{"type":"string"},"publish":{"type":"boolean"}}}}}}, "responses": { "200": { "description": "resource" }, "404": { "description": "not found" } } } },
    "/api/testimonials": {
      "get": { "summary": "Testimonials document (items, version)", "responses": { "200": { "description": "document" } } },
      "post": { "summary": "Create testimonial", "security": [{"bearer":[]}], "responses": { "201": { "description": "created" } } },
      "put": { "summary": "Update testimonial; published may be set here", "security": [{"bearer":[]}], "responses": { "200": { "description": "updated" } } },
      "delete": { "summary": "Delete testimonial", "security": [{"bearer":[]}], "parameters": [{"name":"id","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "deleted" } } }
    },
    "/api/testimonials/published": { "get": { "summary": "Published testimonials", "responses": { "200": { "description": "items" } } } },
    "/api/testimonials/publish": { "post": { "summary": "Publish or unpublish a testimonial", "security": [{"bearer":[]}], "responses": { "200": { "description": "testimonial" } } } },
    "/api/upload": { "post": { "summary": "Upload an image, video or PDF (multipart field file)", "security": [{"bearer":[]}], "responses": { "200": { "description": "url and pathname" }, "413": { "description": "too large" }, "415": { "description": "type not allowed" } } } },
    "/api/contact": { "post": { "summary": "Contact form", "responses": { "200": { "description": "sent" }, "400": { "description": "invalid" }, "429": { "description": "rate limited" }, "500": { "description": "mail failed" } } } },
    "/api/consultations": { "post": { "summary": "Consultation request (preferredDate RFC 3339)", "responses": { "200": { "description": "sent" }, "400": { "description": "invalid" }, "500": { "description": "mail failed" } } } },
    "/api/admin/inquiries": { "get": { "summary": "Stored contact and consultation inquiries", "security": [{"bearer":[]}], "parameters": [{"name":"kind","in":"query","schema":{"type":"string","enum":["contact","consultation"]}},{"name":"limit","in":"query","schema":{"type":"integer"}}], "responses": { "200": { "description": "items" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
