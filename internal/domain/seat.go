package domain

import (
	"slices"
	"time"
)

type SeatState string

const (
	SeatAvailable      SeatState = "available"
	SeatReservedUnpaid SeatState = "reserved-unpaid"
	SeatSoldPaid       SeatState = "sold-paid"
)

func (s SeatState) String() string {
	return string(s)
}

// SeatLayout is the occupancy reply of the authority for one showtime.
type SeatLayout struct {
	Occupied       []string
	ReservedUnpaid []string
}

// SeatMap is a cached snapshot of a SeatLayout. Seats missing from States are
// assumed available.
type SeatMap struct {
	ShowtimeID string
	States     map[string]SeatState
	LoadedAt   time.Time
}

func NewSeatMap(showtimeID string, layout SeatLayout, loadedAt time.Time) SeatMap {
	states := make(map[string]SeatState, len(layout.Occupied)+len(layout.ReservedUnpaid))

	for _, seatID := range layout.ReservedUnpaid {
		states[seatID] = SeatReservedUnpaid
	}

	// a paid seat wins over an unpaid reservation of the same seat
	for _, seatID := range layout.Occupied {
		states[seatID] = SeatSoldPaid
	}

	return SeatMap{
		ShowtimeID: showtimeID,
		States:     states,
		LoadedAt:   loadedAt,
	}
}

func (m SeatMap) State(seatID string) SeatState {
	if state, ok := m.States[seatID]; ok {
		return state
	}

	return SeatAvailable
}

// SeatsIn returns the sorted ids of the seats in the given state.
func (m SeatMap) SeatsIn(state SeatState) []string {
	var ids []string

	for id, s := range m.States {
		if s == state {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids
}
