package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/lam4est/CinemaX/api"
	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/payment"
	appvalidator "github.com/lam4est/CinemaX/internal/validator"
)

func (app *application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.contextGetLogger(r).Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	app.writeErrorResponse(w, r, status, api.ErrorResponse{Message: message})
}

func (app *application) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, resp api.ErrorResponse) {
	resp.RequestId = middleware.GetReqID(r.Context())
	resp.Timestamp = time.Now()

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource not found"
	app.errorResponse(w, r, http.StatusNotFound, message)
}

func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "The requested method is not supported for this resource")
}

func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		app.badRequestResponse(w, r, err)
		return
	}

	resp := api.ValidationErrorResponse{
		Message:   "One or more fields are invalid",
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	for _, fe := range vErrs {
		resp.ValidationErrors = append(resp.ValidationErrors, api.ValidationError{
			Field: fe.Field(),
			Issue: appvalidator.ValidationMessage(fe),
		})
	}

	err = app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// checkoutErrorResponse maps checkout failures to a status and attaches the
// resulting checkout state so the page can redraw without another request.
func (app *application) checkoutErrorResponse(w http.ResponseWriter, r *http.Request, err error, view checkout.View) {
	var invalidCard *payment.InvalidCardError
	if errors.As(err, &invalidCard) {
		app.failedValidationResponse(w, r, invalidCard.Fields)
		return
	}

	status := checkoutErrorStatus(err)
	if status == http.StatusInternalServerError {
		app.serverErrorResponse(w, r, err)
		return
	}

	if status == http.StatusServiceUnavailable || status == http.StatusUnauthorized {
		app.contextGetLogger(r).Warn("checkout request failed", "error", err)
	}

	resp := api.ErrorResponse{Message: err.Error()}

	var conflict *domain.SeatConflictError
	if errors.As(err, &conflict) {
		resp.SeatIds = conflict.SeatIDs
	}

	if view.Stage != "" {
		c := app.toApiCheckout(view)
		resp.Checkout = &c
	}

	app.writeErrorResponse(w, r, status, resp)
}

func checkoutErrorStatus(err error) int {
	var conflict *domain.SeatConflictError

	switch {
	case errors.As(err, &conflict):
		return http.StatusConflict

	case errors.Is(err, domain.ErrEmptySelection),
		errors.Is(err, domain.ErrNoShowtimeSelected),
		errors.Is(err, domain.ErrSeatUnavailable),
		errors.Is(err, domain.ErrSelectionLimitReached),
		errors.Is(err, domain.ErrIncompleteCardInput),
		errors.Is(err, domain.ErrInvalidCardInput):
		return http.StatusUnprocessableEntity

	case errors.Is(err, domain.ErrShowtimeNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrUnsupportedPaymentMethod):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrBookingConflict),
		errors.Is(err, domain.ErrCheckoutAlreadyInProgress),
		errors.Is(err, domain.ErrCheckoutSettled),
		errors.Is(err, domain.ErrNoActiveBooking),
		errors.Is(err, domain.ErrPaymentInProgress),
		errors.Is(err, domain.ErrNoPendingOrder),
		errors.Is(err, domain.ErrOrderMismatch),
		errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict

	case errors.Is(err, domain.ErrPaymentRejected):
		return http.StatusPaymentRequired

	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, domain.ErrAvailabilityFetchFailed),
		errors.Is(err, domain.ErrBookingUnreachable),
		errors.Is(err, domain.ErrPaymentUnreachable),
		errors.Is(err, domain.ErrOrderUnavailable):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
