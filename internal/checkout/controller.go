// Package checkout holds the per-session state machine that takes a visitor
// from picking a showtime to a paid booking.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lam4est/CinemaX/internal/domain"
	"github.com/lam4est/CinemaX/internal/payment"
	"github.com/lam4est/CinemaX/internal/selection"
	"github.com/shopspring/decimal"
)

type SeatCache interface {
	Load(ctx context.Context, showtime domain.Showtime) (domain.SeatMap, error)
	Get(ctx context.Context, showtimeID, seatID string) domain.SeatState
	Snapshot(ctx context.Context, showtimeID string) (domain.SeatMap, bool)
	Has(ctx context.Context, showtimeID string) bool
}

type Booker interface {
	Create(ctx context.Context, showtime domain.Showtime, sel selection.Selection) (*domain.Booking, error)
}

type Gateways interface {
	Get(method domain.PaymentMethod) (payment.Gateway, error)
}

// Controller serialises one session's checkout. Network calls run without the
// lock held; their results are applied only if the session has not moved on
// in the meantime, otherwise the caller gets ErrSuperseded.
type Controller struct {
	catalog  domain.ShowtimeProvider
	cache    SeatCache
	bookings Booker
	gateways Gateways
	logger   *slog.Logger

	mu sync.Mutex
	// generation changes when the visitor leaves the checkout
	generation uint64
	// dateSeq and showtimeSeq change on every date or showtime pick
	dateSeq     uint64
	showtimeSeq uint64

	stage     Stage
	movieID   string
	date      time.Time
	showtimes []domain.Showtime
	showtime  *domain.Showtime
	selection selection.Selection
	stale     bool
	booking   *domain.Booking
	attempt   *domain.PaymentAttempt
	notice    *Notice
}

func NewController(
	catalog domain.ShowtimeProvider,
	cache SeatCache,
	bookings Booker,
	gateways Gateways,
	logger *slog.Logger) *Controller {

	return &Controller{
		catalog:  catalog,
		cache:    cache,
		bookings: bookings,
		gateways: gateways,
		logger:   logger,
		stage:    StageIdle,
	}
}

// SelectDate lists the showtimes of a movie on a day. Picking another movie or
// day drops the current showtime and selection.
func (c *Controller) SelectDate(ctx context.Context, movieID string, date time.Time) (View, error) {
	c.mu.Lock()
	if err := c.requireSelectable(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	c.dateSeq++
	seq, gen := c.dateSeq, c.generation
	c.mu.Unlock()

	showtimes, err := c.catalog.GetShowtimes(ctx, movieID, date)

	c.mu.Lock()
	if c.dateSeq != seq || c.generation != gen {
		c.mu.Unlock()
		return View{}, domain.ErrSuperseded
	}

	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("could not list showtimes", "movie_id", movieID, "date", date.Format(time.DateOnly), "error", err)
		return c.View(ctx), err
	}

	if err := c.requireSelectable(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	changed := movieID != c.movieID || !sameDay(date, c.date)

	c.movieID = movieID
	c.date = date
	c.showtimes = showtimes

	if changed || (c.showtime != nil && !slices.ContainsFunc(showtimes, hasID(c.showtime.ID))) {
		c.clearShowtimeLocked()
	}
	c.mu.Unlock()

	return c.View(ctx), nil
}

// SelectShowtime switches to one of the listed showtimes, clears the selection
// and loads its seats. A failed load still switches; the view is then marked
// stale.
func (c *Controller) SelectShowtime(ctx context.Context, showtimeID string) (View, error) {
	c.mu.Lock()
	if err := c.requireSelectable(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	idx := slices.IndexFunc(c.showtimes, hasID(showtimeID))
	if idx < 0 {
		c.mu.Unlock()
		return c.View(ctx), domain.ErrShowtimeNotFound
	}

	showtime := c.showtimes[idx]
	c.showtime = &showtime
	c.selection = selection.New()
	c.stage = StageSelecting
	c.stale = false
	c.notice = nil
	c.showtimeSeq++
	seq, gen := c.showtimeSeq, c.generation
	c.mu.Unlock()

	_, err := c.cache.Load(ctx, showtime)

	c.mu.Lock()
	if c.showtimeSeq != seq || c.generation != gen {
		c.mu.Unlock()
		c.logger.Debug("discarding seat layout of a showtime no longer selected", "showtime_id", showtime.ID)
		return View{}, domain.ErrSuperseded
	}

	c.stale = err != nil && !errors.Is(err, domain.ErrSuperseded)
	c.mu.Unlock()

	return c.View(ctx), nil
}

// ToggleSeat adds or removes a seat. The seats of a showtime that has never
// been loaded are fetched first.
func (c *Controller) ToggleSeat(ctx context.Context, seatID string) (View, error) {
	c.mu.Lock()
	if err := c.requireSelecting(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	showtime := *c.showtime
	seq, gen := c.showtimeSeq, c.generation
	c.mu.Unlock()

	var loadErr error
	if !c.cache.Has(ctx, showtime.ID) {
		_, loadErr = c.cache.Load(ctx, showtime)
		if errors.Is(loadErr, domain.ErrSuperseded) {
			loadErr = nil
		}
	}

	state := c.cache.Get(ctx, showtime.ID, seatID)

	c.mu.Lock()
	if c.showtimeSeq != seq || c.generation != gen {
		c.mu.Unlock()
		return View{}, domain.ErrSuperseded
	}

	if err := c.requireSelecting(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	if loadErr != nil {
		c.stale = true
	}

	sel, err := selection.Toggle(c.selection, seatID, state, true)
	if err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	c.selection = sel
	c.notice = nil
	c.mu.Unlock()

	return c.View(ctx), nil
}

// ProceedToCheckout creates the booking for the current selection. Only one
// booking can be in flight or awaiting payment per session.
func (c *Controller) ProceedToCheckout(ctx context.Context) (View, error) {
	c.mu.Lock()
	if err := c.requireSelecting(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	if c.selection.IsEmpty() {
		c.mu.Unlock()
		return c.View(ctx), domain.ErrEmptySelection
	}

	showtime, sel, gen := *c.showtime, c.selection, c.generation
	c.stage = StageBooking
	c.notice = nil
	c.mu.Unlock()

	booking, err := c.bookings.Create(ctx, showtime, sel)

	var dropped []string
	if isConflict(err) {
		dropped = c.conflictingSeats(ctx, showtime, sel, err)
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		if booking != nil {
			c.logger.Warn("booking created after the visitor left, abandoning it", "booking_id", booking.ID)
		}
		return View{}, domain.ErrSuperseded
	}

	switch {
	case err == nil:
		c.booking = booking
		c.attempt = nil
		c.stage = StagePaymentIdle

	case isConflict(err):
		c.selection = sel.Without(dropped...)
		c.stage = StageSelecting
		c.notice = &Notice{Kind: NoticeConflict, Message: err.Error(), SeatIDs: dropped}

	default:
		c.stage = StageSelecting
		c.notice = &Notice{Kind: NoticeError, Message: err.Error()}
	}
	c.mu.Unlock()

	return c.View(ctx), err
}

// conflictingSeats refreshes the layout and returns the seats to drop: those
// the authority named plus any now sold.
func (c *Controller) conflictingSeats(ctx context.Context, showtime domain.Showtime, sel selection.Selection, err error) []string {
	if _, loadErr := c.cache.Load(ctx, showtime); loadErr != nil && !errors.Is(loadErr, domain.ErrSuperseded) {
		c.logger.Warn("could not refresh seats after conflict", "showtime_id", showtime.ID, "error", loadErr)
	}

	var dropped []string

	var conflict *domain.SeatConflictError
	if errors.As(err, &conflict) {
		for _, id := range conflict.SeatIDs {
			if sel.Contains(id) && !slices.Contains(dropped, id) {
				dropped = append(dropped, id)
			}
		}
	}

	sold := selection.Unavailable(sel, func(seatID string) domain.SeatState {
		return c.cache.Get(ctx, showtime.ID, seatID)
	})

	for _, id := range sold {
		if !slices.Contains(dropped, id) {
			dropped = append(dropped, id)
		}
	}

	return dropped
}

// Pay starts a payment attempt for the current booking.
func (c *Controller) Pay(ctx context.Context, method domain.PaymentMethod, payload payment.Payload) (View, error) {
	gateway, err := c.gateways.Get(method)
	if err != nil {
		return c.View(ctx), err
	}

	c.mu.Lock()
	if err := c.requirePayable(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	booking, gen := c.booking.Clone(), c.generation
	c.stage = StageSettling
	c.notice = nil
	c.mu.Unlock()

	attempt, err := gateway.Start(ctx, booking, payload)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Warn("payment finished after the visitor left", "booking_id", booking.ID, "status", booking.Status)
		return View{}, domain.ErrSuperseded
	}

	c.applyPaymentLocked(booking, attempt, err)
	c.mu.Unlock()

	return c.View(ctx), err
}

func (c *Controller) ApproveRedirect(ctx context.Context, providerOrderID string) (View, error) {
	c.mu.Lock()
	if err := c.requirePending(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	gateway, err := c.gateways.Get(c.attempt.Method)
	if err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	booking, attempt, gen := c.booking.Clone(), c.attempt.Clone(), c.generation
	c.stage = StageSettling
	c.mu.Unlock()

	err = gateway.Resume(ctx, booking, attempt, payment.Callback{
		Kind:            payment.CallbackApprove,
		ProviderOrderID: providerOrderID,
	})

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		c.logger.Warn("provider approval settled after the visitor left", "booking_id", booking.ID, "status", booking.Status)
		return View{}, domain.ErrSuperseded
	}

	c.applyPaymentLocked(booking, attempt, err)
	c.mu.Unlock()

	return c.View(ctx), err
}

func (c *Controller) CancelRedirect(ctx context.Context) (View, error) {
	return c.endRedirect(ctx, payment.Callback{Kind: payment.CallbackCancel})
}

func (c *Controller) FailRedirect(ctx context.Context, reason error) (View, error) {
	return c.endRedirect(ctx, payment.Callback{Kind: payment.CallbackError, Err: reason})
}

// endRedirect handles cancel and error callbacks. Neither reaches the
// authority, so the gateway runs under the lock.
func (c *Controller) endRedirect(ctx context.Context, cb payment.Callback) (View, error) {
	c.mu.Lock()
	if err := c.requirePending(); err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	gateway, err := c.gateways.Get(c.attempt.Method)
	if err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	booking, attempt := c.booking.Clone(), c.attempt.Clone()

	err = gateway.Resume(ctx, booking, attempt, cb)
	if err != nil {
		c.mu.Unlock()
		return c.View(ctx), err
	}

	c.booking = booking
	c.attempt = attempt
	c.stage = StagePaymentIdle
	c.notice = &Notice{Kind: NoticePaymentCancelled, Message: "payment was not completed"}
	if cb.Err != nil {
		c.notice.Message = cb.Err.Error()
	}
	c.mu.Unlock()

	return c.View(ctx), nil
}

// Leave discards the selection and any unpaid booking. Calls still in flight
// for the old checkout will return ErrSuperseded.
func (c *Controller) Leave() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.booking != nil && c.stage != StageConfirmed {
		c.logger.Info("visitor left checkout with an unpaid booking", "booking_id", c.booking.ID)
	}

	c.generation++
	c.dateSeq++
	c.showtimeSeq++

	c.stage = StageIdle
	c.movieID = ""
	c.date = time.Time{}
	c.showtimes = nil
	c.showtime = nil
	c.selection = selection.New()
	c.stale = false
	c.booking = nil
	c.attempt = nil
	c.notice = nil
}

func (c *Controller) View(ctx context.Context) View {
	c.mu.Lock()
	v := c.snapshotLocked()
	c.mu.Unlock()

	if v.Showtime != nil && (v.Stage == StageIdle || v.Stage == StageSelecting) {
		if seats, ok := c.cache.Snapshot(ctx, v.Showtime.ID); ok {
			v.Seats = &seats
		}
	}

	return v
}

func (c *Controller) snapshotLocked() View {
	v := View{
		Stage:      c.stage,
		MovieID:    c.movieID,
		Date:       c.date,
		Showtimes:  slices.Clone(c.showtimes),
		Selection:  c.selection.IDs(),
		LocalTotal: decimal.Zero,
		Stale:      c.stale,
		Booking:    c.booking.Clone(),
		Attempt:    c.attempt.Clone(),
	}

	if c.showtime != nil {
		showtime := *c.showtime
		v.Showtime = &showtime
		v.LocalTotal = showtime.Price.Mul(decimal.NewFromInt(int64(c.selection.Len())))
	}

	if c.notice != nil {
		notice := *c.notice
		notice.SeatIDs = slices.Clone(c.notice.SeatIDs)
		v.Notice = &notice
	}

	return v
}

func (c *Controller) applyPaymentLocked(booking *domain.Booking, attempt *domain.PaymentAttempt, err error) {
	switch {
	case err == nil && booking.Status == domain.BookingStatusSettled:
		c.booking = booking
		c.attempt = attempt
		c.stage = StageConfirmed
		c.notice = nil

	case err == nil:
		c.booking = booking
		c.attempt = attempt
		c.stage = StagePaymentPending

	case errors.Is(err, domain.ErrPaymentRejected):
		// a failed booking is never retried; the visitor books again
		c.selection = selection.New(booking.Seats...)
		c.booking = nil
		c.attempt = nil
		c.stage = StageSelecting
		c.notice = &Notice{Kind: NoticePaymentRejected, Message: err.Error()}

	case errors.Is(err, domain.ErrIncompleteCardInput), errors.Is(err, domain.ErrInvalidCardInput):
		c.stage = StagePaymentIdle

	case errors.Is(err, domain.ErrOrderMismatch):
		c.stage = StagePaymentPending

	default:
		c.booking = booking
		if attempt != nil {
			c.attempt = attempt
		}
		c.stage = StagePaymentIdle
		c.notice = &Notice{Kind: NoticeError, Message: err.Error()}
	}
}

func (c *Controller) clearShowtimeLocked() {
	c.showtime = nil
	c.selection = selection.New()
	c.stale = false
	c.stage = StageIdle
	c.showtimeSeq++
}

// requireSelectable allows picking a date or showtime.
func (c *Controller) requireSelectable() error {
	switch c.stage {
	case StageIdle, StageSelecting:
		return nil
	case StageConfirmed:
		return domain.ErrCheckoutSettled
	default:
		return domain.ErrCheckoutAlreadyInProgress
	}
}

// requireSelecting allows changing the seats of the current showtime.
func (c *Controller) requireSelecting() error {
	switch c.stage {
	case StageSelecting:
		return nil
	case StageIdle:
		return domain.ErrNoShowtimeSelected
	case StageConfirmed:
		return domain.ErrCheckoutSettled
	default:
		return domain.ErrCheckoutAlreadyInProgress
	}
}

func (c *Controller) requirePayable() error {
	switch c.stage {
	case StagePaymentIdle:
		return nil
	case StagePaymentPending, StageSettling:
		return domain.ErrPaymentInProgress
	case StageConfirmed:
		return domain.ErrCheckoutSettled
	default:
		return domain.ErrNoActiveBooking
	}
}

func (c *Controller) requirePending() error {
	switch c.stage {
	case StagePaymentPending:
		return nil
	case StageSettling:
		return domain.ErrPaymentInProgress
	case StageConfirmed:
		return domain.ErrCheckoutSettled
	default:
		return domain.ErrNoPendingOrder
	}
}

func isConflict(err error) bool {
	return errors.Is(err, domain.ErrBookingConflict) || errors.Is(err, domain.ErrSeatUnavailable)
}

func hasID(id string) func(domain.Showtime) bool {
	return func(s domain.Showtime) bool {
		return s.ID == id
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
