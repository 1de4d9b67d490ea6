// Package http содержит локальный HTTP API сессии для модулей, работающих вне процесса.
package http

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"sessiongate/internal/session/metrics"
)

// RouterOptions настраивает SetupRouter.
type RouterOptions struct {
	// Metrics, если задан, отдается по MetricsPath.
	Metrics     *metrics.Metrics
	MetricsPath string
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(app *fiber.App, session SessionService, opts RouterOptions) {
	handler := NewHandler(session)

	app.Use(NewRequestIDMiddleware())
	app.Use(NewLoggerMiddleware())
	app.Use(NewRecoveryMiddleware())

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	apiV1 := app.Group("/api/v1")

	sessionRoutes := apiV1.Group("/session")
	sessionRoutes.Post("/login", handler.Login)
	sessionRoutes.Post("/logout", handler.Logout)
	sessionRoutes.Get("/token", handler.Token)
	sessionRoutes.Get("/state", handler.State)

	apiV1.All("/proxy/*", handler.Proxy)

	app.Use(func(c fiber.Ctx) error {
		return sendErrorResponse(c, fiber.StatusNotFound, ErrorResponse{Error: "route not found"})
	})
}
