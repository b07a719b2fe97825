package cli

import (
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"docvault/docs"
	"docvault/internal/config"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/metrics"
	"docvault/internal/service"
	"docvault/internal/storage"
	"docvault/internal/workflow"
)

// components are the long-lived pieces the HTTP app is built from.
type components struct {
	cfg       *config.AppConfig
	log       logrus.FieldLogger
	backend   *backend
	blobs     storage.Storage
	workflows *workflow.Registry
	registry  *prometheus.Registry
}

// newApp wires services, middleware and routes.
func newApp(c components) (*fiber.App, error) {
	promMW, err := middleware.NewPrometheusMiddleware(c.registry)
	if err != nil {
		return nil, err
	}
	vaultMetrics, err := metrics.NewVault(c.registry)
	if err != nil {
		return nil, err
	}

	classes := service.NewClasses(c.cfg.Vault.Classes, c.workflows)
	docSvc := service.NewDocumentService(
		c.blobs, c.backend.documents, c.workflows, classes, c.cfg.Vault.DefaultCreatedBy,
		service.OnCreated(vaultMetrics.DocumentCreated),
	)
	propSvc := service.NewPropertyService(c.backend.properties, classes)
	flowSvc := service.NewWorkflowService(c.backend.documents, c.workflows, workflow.LogObserver(c.log), vaultMetrics)

	app := fiber.New(fiber.Config{
		AppName:      "docvault",
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Order matters: spans first, then request id for the logger and error envelopes.
	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(c.log))
	app.Use(promMW.Handler())
	app.Use(middleware.Timeout(c.cfg.RequestTimeout))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, handlers.Services{
		Ping:       c.backend.documents.Ping,
		Documents:  docSvc,
		Properties: propSvc,
		Workflows:  flowSvc,
	})

	// Swagger UI. The spec is shared by every request, so it is filled in here and only read afterwards;
	// an empty scheme list makes the UI reuse the scheme the page was loaded with.
	docs.SwaggerInfo.Host = c.cfg.AppHost
	docs.SwaggerInfo.Schemes = []string{}
	app.Get("/swagger/*", swagger.HandlerDefault)

	return app, nil
}

// newRegistry returns a Prometheus registry carrying the runtime collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
