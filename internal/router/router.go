package router

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Totarae/psabot/internal/handlers"
	"github.com/Totarae/psabot/internal/middleware"
)

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *handlers.Handler, tokens middleware.TokenValidator, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggingMiddleware(logger)) // Подключаем логирование
	r.Use(middleware.GzipMiddleware)            // Gzip-сжатие

	r.Get("/ping", handler.Ping)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(tokens))
		r.Post("/resolve", handler.Resolve)
		r.Get("/history", handler.History)
	})
	return r
}
