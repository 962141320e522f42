// Package selection holds the seat selection rules of a checkout. All functions
// are pure: they never touch the network or the seat cache.
package selection

import (
	"slices"

	"github.com/lam4est/CinemaX/internal/domain"
)

const MaxSeats = 5

// Selection is an insertion-ordered set of seat ids for one showtime. The zero
// value is an empty selection. Selections are values; every change returns a
// new one.
type Selection struct {
	ids []string
}

func New(seatIDs ...string) Selection {
	var s Selection

	for _, id := range seatIDs {
		if !s.Contains(id) {
			s.ids = append(s.ids, id)
		}
	}

	return s
}

func (s Selection) Len() int {
	return len(s.ids)
}

func (s Selection) IsEmpty() bool {
	return len(s.ids) == 0
}

func (s Selection) Contains(seatID string) bool {
	return slices.Contains(s.ids, seatID)
}

// IDs returns the seats in the order they were picked.
func (s Selection) IDs() []string {
	return slices.Clone(s.ids)
}

// Without returns the selection minus the given seats.
func (s Selection) Without(seatIDs ...string) Selection {
	ids := slices.DeleteFunc(slices.Clone(s.ids), func(id string) bool {
		return slices.Contains(seatIDs, id)
	})

	return Selection{ids: ids}
}

// CanToggle reports whether toggling seatID is allowed. Deselecting is always
// allowed once a showtime is active, whatever the seat state became since.
func CanToggle(s Selection, seatID string, state domain.SeatState, hasShowtime bool) error {
	if !hasShowtime {
		return domain.ErrNoShowtimeSelected
	}

	if s.Contains(seatID) {
		return nil
	}

	if state == domain.SeatSoldPaid {
		return domain.ErrSeatUnavailable
	}

	if len(s.ids) >= MaxSeats {
		return domain.ErrSelectionLimitReached
	}

	return nil
}

// Toggle removes seatID when present and adds it otherwise. On error the
// original selection is returned unchanged.
func Toggle(s Selection, seatID string, state domain.SeatState, hasShowtime bool) (Selection, error) {
	err := CanToggle(s, seatID, state, hasShowtime)
	if err != nil {
		return s, err
	}

	if s.Contains(seatID) {
		return s.Without(seatID), nil
	}

	ids := make([]string, len(s.ids), len(s.ids)+1)
	copy(ids, s.ids)

	return Selection{ids: append(ids, seatID)}, nil
}

// Unavailable returns the selected seats that stateOf reports as sold, in
// selection order.
func Unavailable(s Selection, stateOf func(seatID string) domain.SeatState) []string {
	var sold []string

	for _, id := range s.ids {
		if stateOf(id) == domain.SeatSoldPaid {
			sold = append(sold, id)
		}
	}

	return sold
}

// Validate re-checks a whole selection before it is submitted.
func Validate(s Selection, stateOf func(seatID string) domain.SeatState, hasShowtime bool) error {
	if !hasShowtime {
		return domain.ErrNoShowtimeSelected
	}

	if s.IsEmpty() {
		return domain.ErrEmptySelection
	}

	if len(s.ids) > MaxSeats {
		return domain.ErrSelectionLimitReached
	}

	if sold := Unavailable(s, stateOf); len(sold) > 0 {
		return &domain.SeatConflictError{SeatIDs: sold, Err: domain.ErrSeatUnavailable}
	}

	return nil
}
