package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/domain"
)

// Dispatcher delivers notifications off the caller's path. The recipient
// lookup and the send both happen on the dispatch goroutine, so the only
// synchronous work for the caller is enqueuing. Failures are logged and
// swallowed; a full queue or a slow sender never blocks or fails the
// booking/payment operation that triggered the notification.
type Dispatcher struct {
	notifier domain.Notifier
	users    domain.UserDirectory
	sem      *semaphore.Weighted
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewDispatcher(n domain.Notifier, users domain.UserDirectory, workers int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		notifier: n,
		users:    users,
		sem:      semaphore.NewWeighted(int64(workers)),
		timeout:  timeout,
	}
}

// Dispatch returns immediately; recipient resolution and delivery happen on
// their own goroutine with their own deadline, detached from the request
// context. n.Recipient is filled in from the user directory.
func (d *Dispatcher) Dispatch(userID int64, n domain.Notification) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sem.Acquire(ctx, 1); err != nil {
			log.Warn().Str("ref", n.BookingReference).Err(err).Msg("notification dropped, dispatcher saturated")
			return
		}
		defer d.sem.Release(1)

		user, err := d.users.GetUser(ctx, userID)
		if err != nil {
			log.Warn().Int64("user_id", userID).Str("ref", n.BookingReference).Err(err).Msg("notification skipped, user lookup failed")
			return
		}
		n.Recipient = user.Email

		if err := d.notifier.Notify(ctx, n); err != nil {
			log.Warn().Str("ref", n.BookingReference).Str("subject", n.Subject).Err(err).Msg("notification failed")
			return
		}
		log.Debug().Str("ref", n.BookingReference).Str("subject", n.Subject).Msg("notification sent")
	}()
}

// Wait blocks until in-flight notifications drain. For shutdown and tests.
func (d *Dispatcher) Wait() { d.wg.Wait() }
