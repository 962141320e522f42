package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

type fakeSlot struct {
	Time   string `json:"time"`
	ShowID int    `json:"showId"`
	Price  string `json:"price"`
}

type fakeBooking struct {
	slot  string
	seats []string
	paid  bool
}

// fakeAuthority speaks the booking authority's wire format and keeps its
// state in memory.
type fakeAuthority struct {
	mu       sync.Mutex
	slots    map[string][]fakeSlot
	paid     map[string]map[string]bool
	unpaid   map[string]map[string]bool
	bookings map[string]*fakeBooking
	nextID   int
	calls    map[string]int
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{
		slots: map[string][]fakeSlot{
			showDate: {
				{Time: lateSlot, ShowID: 12, Price: "90000"},
				{Time: eveningSlot, ShowID: 11, Price: "100000"},
			},
		},
		paid:     map[string]map[string]bool{},
		unpaid:   map[string]map[string]bool{},
		bookings: map[string]*fakeBooking{},
		calls:    map[string]int{},
	}
}

func (f *fakeAuthority) sell(slot string, seats ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.paid[slot] == nil {
		f.paid[slot] = map[string]bool{}
	}

	for _, s := range seats {
		f.paid[slot][s] = true
	}
}

func (f *fakeAuthority) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[op]
}

func (f *fakeAuthority) routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/shows/", f.listShows)
		r.Get("/shows/layout/", f.layout)
		r.Post("/bookings/", f.createBooking)
		r.Post("/bookings/{id}/payment/", f.pay)
		r.Post("/bookings/{id}/paypal/order/", f.order)
	})

	return r
}

func (f *fakeAuthority) listShows(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["shows"]++
	writeJSON(w, http.StatusOK, f.slots)
}

func (f *fakeAuthority) layout(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["layout"]++
	slot := r.URL.Query().Get("datetime_str")

	writeJSON(w, http.StatusOK, map[string]any{
		"occupiedSeats": f.paid[slot],
		"bookedSeats":   f.unpaid[slot],
	})
}

func (f *fakeAuthority) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+bearerToken {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
		return false
	}

	return true
}

func (f *fakeAuthority) slotOf(showID string) string {
	for _, slots := range f.slots {
		for _, s := range slots {
			if fmt.Sprint(s.ShowID) == showID {
				return s.Time
			}
		}
	}

	return ""
}

func (f *fakeAuthority) createBooking(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}

	var input struct {
		ShowID string   `json:"showId"`
		Seats  []string `json:"seats"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["booking"]++

	slot := f.slotOf(input.ShowID)
	if slot == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Show not found"})
		return
	}

	var taken []string
	for _, s := range input.Seats {
		if f.paid[slot][s] || f.unpaid[slot][s] {
			taken = append(taken, s)
		}
	}

	if len(taken) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message":           "Some seats are already booked",
			"unavailable_seats": taken,
		})
		return
	}

	if f.unpaid[slot] == nil {
		f.unpaid[slot] = map[string]bool{}
	}

	for _, s := range input.Seats {
		f.unpaid[slot][s] = true
	}

	f.nextID++
	id := fmt.Sprintf("bk-%d", f.nextID)
	f.bookings[id] = &fakeBooking{slot: slot, seats: input.Seats}

	writeJSON(w, http.StatusCreated, map[string]any{
		"_id":         id,
		"show":        input.ShowID,
		"bookedSeats": input.Seats,
		"total_price": 100000 * len(input.Seats),
	})
}

func (f *fakeAuthority) pay(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}

	var input struct {
		PaymentMethod string `json:"payment_method"`
		CardNumber    string `json:"card_number"`
		PayPalOrderID string `json:"paypal_order_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["payment"]++

	booking, ok := f.bookings[chi.URLParam(r, "id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Booking not found"})
		return
	}

	if input.PaymentMethod == "card" && strings.HasSuffix(input.CardNumber, "0002") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Your card was declined"})
		return
	}

	booking.paid = true

	if f.paid[booking.slot] == nil {
		f.paid[booking.slot] = map[string]bool{}
	}

	for _, s := range booking.seats {
		delete(f.unpaid[booking.slot], s)
		f.paid[booking.slot][s] = true
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "paid"})
}

func (f *fakeAuthority) order(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(w, r) {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["order"]++
	id := chi.URLParam(r, "id")

	writeJSON(w, http.StatusOK, map[string]string{
		"order_id":     "PAYPAL-" + id,
		"approval_url": "https://provider.test/approve/PAYPAL-" + id,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
