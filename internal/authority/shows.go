package authority

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/shopspring/decimal"
)

// flexID accepts ids encoded either as JSON strings or numbers.
type flexID string

func (id *flexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = flexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}

	*id = flexID(n.String())

	return nil
}

type showtimeSlot struct {
	Time   string          `json:"time"`
	ShowID flexID          `json:"showId"`
	Price  decimal.Decimal `json:"price"`
}

type seatLayoutReply struct {
	OccupiedSeats map[string]any `json:"occupiedSeats"`
	BookedSeats   map[string]any `json:"bookedSeats"`
}

var slotLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// GetShowtimes lists the screenings of a movie on one day, ordered by start
// time.
func (c *Client) GetShowtimes(ctx context.Context, movieID string, date time.Time) ([]domain.Showtime, error) {
	rep, err := c.do(ctx, call{
		op:          "list_showtimes",
		method:      http.MethodGet,
		path:        "shows/",
		query:       url.Values{"movieId": {movieID}},
		auth:        authOptional,
		unreachable: domain.ErrAvailabilityFetchFailed,
	})
	if err != nil {
		return nil, err
	}

	if rep.status == http.StatusNotFound {
		return nil, domain.ErrRecordNotFound
	}

	if !rep.ok() {
		return nil, fmt.Errorf("%w: %s", domain.ErrAvailabilityFetchFailed, rep.errorBody().message(rep.status))
	}

	var byDate map[string][]showtimeSlot
	if err := rep.decode(&byDate); err != nil {
		return nil, fmt.Errorf("%w: malformed showtimes: %w", domain.ErrAvailabilityFetchFailed, err)
	}

	day := date.Format(time.DateOnly)
	showtimes := make([]domain.Showtime, 0, len(byDate[day]))

	for _, slot := range byDate[day] {
		startsAt, err := parseSlot(slot.Time, date)
		if err != nil {
			c.logger.Warn("skipping showtime with unreadable time", "show_id", slot.ShowID, "time", slot.Time)
			continue
		}

		showtimes = append(showtimes, domain.Showtime{
			ID:       string(slot.ShowID),
			MovieID:  movieID,
			StartsAt: startsAt,
			Price:    slot.Price,
			Slot:     slot.Time,
		})
	}

	slices.SortFunc(showtimes, func(a, b domain.Showtime) int {
		return a.StartsAt.Compare(b.StartsAt)
	})

	return showtimes, nil
}

// GetSeatLayout fetches the occupancy of one screening.
func (c *Client) GetSeatLayout(ctx context.Context, showtime domain.Showtime) (*domain.SeatLayout, error) {
	slot := showtime.Slot
	if slot == "" {
		slot = showtime.StartsAt.Format(time.RFC3339)
	}

	rep, err := c.do(ctx, call{
		op:     "seat_layout",
		method: http.MethodGet,
		path:   "shows/layout/",
		query: url.Values{
			"movieId":      {showtime.MovieID},
			"datetime_str": {slot},
		},
		auth:        authOptional,
		unreachable: domain.ErrAvailabilityFetchFailed,
	})
	if err != nil {
		return nil, err
	}

	if !rep.ok() {
		return nil, fmt.Errorf("%w: %s", domain.ErrAvailabilityFetchFailed, rep.errorBody().message(rep.status))
	}

	var body seatLayoutReply
	if err := rep.decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed seat layout: %w", domain.ErrAvailabilityFetchFailed, err)
	}

	return &domain.SeatLayout{
		Occupied:       markedSeats(body.OccupiedSeats),
		ReservedUnpaid: markedSeats(body.BookedSeats),
	}, nil
}

// markedSeats returns the sorted seat ids whose flag is set. The authority
// flags seats with true or with the id of the holder.
func markedSeats(flags map[string]any) []string {
	var ids []string

	for id, flag := range flags {
		switch v := flag.(type) {
		case nil:
			continue
		case bool:
			if !v {
				continue
			}
		case string:
			if v == "" {
				continue
			}
		case float64:
			if v == 0 {
				continue
			}
		}

		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

func parseSlot(value string, date time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)

	for _, layout := range slotLayouts {
		if t, err := time.ParseInLocation(layout, value, date.Location()); err == nil {
			return t, nil
		}
	}

	// bare clock times belong to the requested day
	clock, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised showtime %q", value)
	}

	y, m, d := date.Date()

	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, date.Location()), nil
}
