package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"

	_ "github.com/AlexMuzzy/sample-crud-kotlin-app/docs"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/dto"
	"github.com/AlexMuzzy/sample-crud-kotlin-app/internal/handlers"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, a *App) {
	r.GET("/", rootHandler(a))
	r.GET("/health", healthHandler(a))
	r.GET("/version", versionHandler(a))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	api := r.Group("/api")
	registerTodoRoutes(api, handlers.NewTodoHandler(a.svc, a.logger))
}

func rootHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Todo API",
			"version": a.cfg.App.Version,
			"env":     a.cfg.App.Env,
			"docs":    "/swagger/index.html",
			"openapi": "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api/todos",
		})
	}
}

func healthHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ok := true
		checks := gin.H{}
		for name, err := range a.ping(ctx) {
			if err != nil {
				ok = false
				checks[name] = err.Error()
				a.logger.Warn("health check failed", "dependency", name, "err", err)
				continue
			}
			checks[name] = "ok"
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"ok": ok, "env": a.cfg.App.Env, "checks": checks})
	}
}

func versionHandler(a *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": a.cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTodoRoutes(api *gin.RouterGroup, h *handlers.TodoHandler) {
	api.POST("/todos", h.Create)
	api.GET("/todos", h.List)
	api.GET("/todos/status", h.ListByStatus)
	api.GET("/todos/search", h.Search)
	api.GET("/todos/:id", h.GetByID)
	api.PUT("/todos/:id", h.Update)
	api.PATCH("/todos/:id/complete", h.Complete)
	api.DELETE("/todos/:id", h.Delete)
}
