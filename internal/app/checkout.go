package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lam4est/CinemaX/api"
	"github.com/lam4est/CinemaX/internal/checkout"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/lam4est/CinemaX/internal/selection"
)

var errProviderFailed = errors.New("the payment provider reported an error")

func (app *application) GetCheckout(w http.ResponseWriter, r *http.Request) {
	app.writeCheckout(w, r, app.checkout(r).View(r.Context()))
}

func (app *application) LeaveCheckout(w http.ResponseWriter, r *http.Request) {
	c := app.checkout(r)
	c.Leave()

	app.writeCheckout(w, r, c.View(r.Context()))
}

func (app *application) SelectDate(w http.ResponseWriter, r *http.Request) {
	var input api.SelectDateRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	view, err := app.checkout(r).SelectDate(r.Context(), input.MovieId, input.Date.Time)
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) SelectShowtime(w http.ResponseWriter, r *http.Request) {
	var input api.SelectShowtimeRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	view, err := app.checkout(r).SelectShowtime(r.Context(), input.ShowtimeId)
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	if view.Stale {
		app.contextGetLogger(r).Warn("serving seat map without fresh availability", "showtime_id", input.ShowtimeId)
	}

	app.writeCheckout(w, r, view)
}

func (app *application) GetSeats(w http.ResponseWriter, r *http.Request) {
	view := app.checkout(r).View(r.Context())

	c := app.toApiCheckout(view)
	if c.Seats == nil {
		app.checkoutErrorResponse(w, r, domain.ErrNoShowtimeSelected, view)
		return
	}

	err := app.writeJSON(w, http.StatusOK, api.SeatMapResponse{Seats: *c.Seats}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) ToggleSeat(w http.ResponseWriter, r *http.Request) {
	seatID := strings.ToUpper(chi.URLParam(r, "seatId"))

	err := app.validator.Var(seatID, "seat_id")
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	view, err := app.checkout(r).ToggleSeat(r.Context(), seatID)
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) ProceedToCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := app.checkout(r).ProceedToCheckout(r.Context())
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) PayByCard(w http.ResponseWriter, r *http.Request) {
	var input api.CardPaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payload := payment.Payload{
		Card: domain.CardFields{
			Number:     input.CardNumber,
			HolderName: input.CardName,
			Expiry:     input.ExpiryDate,
			CVV:        input.Cvv,
		},
	}

	view, err := app.checkout(r).Pay(r.Context(), domain.PaymentMethodCard, payload)
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) PayByRedirect(w http.ResponseWriter, r *http.Request) {
	var input api.RedirectPaymentRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	view, err := app.checkout(r).Pay(r.Context(), domain.PaymentMethodRedirect, payment.Payload{Description: input.Description})
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

// ApproveRedirect accepts the provider's browser redirect (GET with an orderId
// query parameter) as well as a JSON callback from the page.
func (app *application) ApproveRedirect(w http.ResponseWriter, r *http.Request) {
	input := api.ApproveRedirectRequest{OrderId: r.URL.Query().Get("orderId")}

	if r.Method == http.MethodPost {
		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
	}

	err := app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	view, err := app.checkout(r).ApproveRedirect(r.Context(), input.OrderId)
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) CancelRedirect(w http.ResponseWriter, r *http.Request) {
	view, err := app.checkout(r).CancelRedirect(r.Context())
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) FailRedirect(w http.ResponseWriter, r *http.Request) {
	var input api.FailRedirectRequest

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reason := errProviderFailed
	if input.Reason != "" {
		reason = errors.New(input.Reason)
	}

	view, err := app.checkout(r).FailRedirect(r.Context(), reason)
	if err != nil {
		app.checkoutErrorResponse(w, r, err, view)
		return
	}

	app.writeCheckout(w, r, view)
}

func (app *application) writeCheckout(w http.ResponseWriter, r *http.Request, view checkout.View) {
	err := app.writeJSON(w, http.StatusOK, api.CheckoutResponse{Checkout: app.toApiCheckout(view)}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) toApiCheckout(view checkout.View) api.Checkout {
	c := api.Checkout{
		Stage:     string(view.Stage),
		MovieId:   view.MovieID,
		Showtimes: make([]api.Showtime, 0, len(view.Showtimes)),
	}

	if !view.Date.IsZero() {
		c.Date = view.Date.Format(time.DateOnly)
	}

	for _, s := range view.Showtimes {
		c.Showtimes = append(c.Showtimes, toApiShowtime(s))
	}

	if view.Showtime != nil {
		s := toApiShowtime(*view.Showtime)
		c.Showtime = &s

		if view.Stage == checkout.StageIdle || view.Stage == checkout.StageSelecting {
			c.Seats = toApiSeatMap(view)
		}
	}

	if view.Booking != nil {
		c.Booking = &api.Booking{
			Id:            view.Booking.ID,
			ShowtimeId:    view.Booking.ShowtimeID,
			Seats:         nonNil(view.Booking.Seats),
			SeatCount:     len(view.Booking.Seats),
			TotalPrice:    view.Booking.TotalPrice,
			Currency:      strings.ToUpper(app.config.Stripe.Currency),
			PaymentStatus: string(view.Booking.PaymentStatus),
			Status:        string(view.Booking.Status),
			CreatedAt:     view.Booking.CreatedAt,
		}
	}

	if view.Attempt != nil {
		c.Payment = &api.PaymentAttempt{
			Id:            view.Attempt.ID.String(),
			Method:        string(view.Attempt.Method),
			Stage:         string(view.Attempt.Stage),
			Outcome:       string(view.Attempt.Outcome),
			OrderId:       view.Attempt.CorrelationID,
			OrderSource:   string(view.Attempt.OrderSource),
			ApprovalUrl:   view.Attempt.ApprovalURL,
			FailureReason: view.Attempt.FailureReason,
			StartedAt:     view.Attempt.StartedAt,
		}
	}

	if view.Notice != nil {
		c.Notice = &api.Notice{
			Kind:    string(view.Notice.Kind),
			Message: view.Notice.Message,
			SeatIds: view.Notice.SeatIDs,
		}
	}

	return c
}

func toApiShowtime(s domain.Showtime) api.Showtime {
	return api.Showtime{
		Id:       s.ID,
		MovieId:  s.MovieID,
		StartsAt: s.StartsAt,
		Time:     s.Slot,
		Price:    s.Price,
	}
}

func toApiSeatMap(view checkout.View) *api.SeatMap {
	seats := &api.SeatMap{
		ShowtimeId:     view.Showtime.ID,
		SoldSeats:      []string{},
		ReservedSeats:  []string{},
		SelectedSeats:  nonNil(view.Selection),
		Stale:          view.Stale,
		MaxSelectable:  selection.MaxSeats,
		SelectionTotal: view.LocalTotal,
	}

	if view.Seats != nil {
		seats.SoldSeats = nonNil(view.Seats.SeatsIn(domain.SeatSoldPaid))
		seats.ReservedSeats = nonNil(view.Seats.SeatsIn(domain.SeatReservedUnpaid))

		loadedAt := view.Seats.LoadedAt
		seats.LoadedAt = &loadedAt
	}

	return seats
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}

	return ids
}
