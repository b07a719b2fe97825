package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"docvault/internal/service"
)

// Services bundles what the routes depend on.
type Services struct {
	Ping       func(context.Context) error
	Documents  service.DocumentService
	Properties service.PropertyService
	Workflows  service.WorkflowService
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, s Services) {
	app.Get("/health", HealthCheck(s.Ping))
	app.Get("/healthz", LivenessProbe())

	app.Get("/views", ListViews(s.Documents))
	app.Get("/workflows", ListWorkflows(s.Workflows))

	app.Post("/upload", UploadDocument(s.Documents))

	docs := app.Group("/documents")
	docs.Get("/", ListDocuments(s.Documents))
	docs.Post("/", CreateDocument(s.Documents))
	docs.Get("/:id", GetDocument(s.Documents, s.Workflows))
	docs.Delete("/:id", DeleteDocument(s.Documents))
	docs.Get("/:id/download", DownloadDocument(s.Documents))
	docs.Get("/:id/properties", GetProperties(s.Properties))
	docs.Post("/:id/properties", SetProperty(s.Properties))
	docs.Post("/:id/workflow", TransitionWorkflow(s.Workflows))
}
