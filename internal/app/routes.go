package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)
	r.MethodNotAllowed(app.methodNotAllowedResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinemax-bff", otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(app.recoverPanic)

	r.Get("/healthcheck", app.GetHealth)

	if app.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
	}

	r.Route("/checkout", func(r chi.Router) {
		r.Use(app.sessionManager.LoadAndSave)
		r.Use(app.ensureSession)
		r.Use(app.captureBearer)

		r.Get("/", app.GetCheckout)
		r.Delete("/", app.LeaveCheckout)

		r.Post("/date", app.SelectDate)
		r.Put("/showtime", app.SelectShowtime)

		r.Get("/seats", app.GetSeats)
		r.Post("/seats/{seatId}/toggle", app.ToggleSeat)

		r.Post("/booking", app.ProceedToCheckout)

		r.Route("/payments", func(r chi.Router) {
			r.Post("/card", app.PayByCard)
			r.Post("/redirect", app.PayByRedirect)
			r.Get("/redirect/approve", app.ApproveRedirect)
			r.Post("/redirect/approve", app.ApproveRedirect)
			r.Get("/redirect/cancel", app.CancelRedirect)
			r.Post("/redirect/cancel", app.CancelRedirect)
			r.Post("/redirect/error", app.FailRedirect)
		})
	})

	return r
}
