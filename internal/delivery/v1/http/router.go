package http

import (
	_ "github.com/DRSN-tech/pharmacy-counter/docs" // Импорт сгенерированных файлов
	"github.com/DRSN-tech/pharmacy-counter/internal/usecase"
	"github.com/DRSN-tech/pharmacy-counter/pkg/logger"
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(counterUC usecase.CounterUC) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"), // ссылка на JSON
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		handler := NewCounterHandler(counterUC, r.logger)
		registerSessionRoutes(v1, handler)
	})
}

func registerSessionRoutes(router chi.Router, h *CounterHandler) {
	router.Route("/sessions", func(s chi.Router) {
		s.Post("/", h.openSession)

		s.Route("/{sessionId}", func(s chi.Router) {
			s.Get("/", h.getSession)
			s.Delete("/", h.closeSession)
			s.Get("/catalog", h.searchCatalog)

			s.Route("/cart", func(c chi.Router) {
				c.Delete("/", h.clearCart)
				c.Put("/patient", h.setPatient)
				c.Post("/lines", h.addLine)
				c.Patch("/lines/{productId}", h.updateQuantity)
				c.Delete("/lines/{productId}", h.removeLine)
			})

			s.Post("/prescriptions", h.applyPrescription)
			s.Post("/cancel", h.cancel)

			s.Route("/issue", func(i chi.Router) {
				i.Post("/", h.submitIssue)
				i.Post("/reset", h.resetIssue)
				i.Get("/documents/{format}", h.renderDocument)
				i.Post("/documents/{format}/print", h.printDocument)
			})
		})
	})
}
