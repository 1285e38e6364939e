// Package notify delivers appointment emails in the background.
//
// The Dispatcher accepts events without blocking the caller. Workers resolve
// each appointment, compose the email and hand it to a Mailer, retrying
// failed deliveries a bounded number of times. Undeliverable notifications
// are logged and counted, never reported back to the request that caused
// them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"

	"salonbook/backend/internal/domain"
	"salonbook/backend/internal/metrics"
	"salonbook/backend/internal/store"
)

const sendTimeout = 30 * time.Second

// ViewResolver loads the data an email needs.
type ViewResolver interface {
	GetView(ctx context.Context, id uuid.UUID) (domain.AppointmentView, error)
}

type Config struct {
	QueueSize  int
	Workers    int
	Attempts   int
	RetryDelay time.Duration
	Clock      clock.Clock
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	if c.Clock == nil {
		c.Clock = clock.WallClock
	}
	return c
}

type job struct {
	userID        uuid.UUID
	appointmentID uuid.UUID
	action        domain.Status
}

type Dispatcher struct {
	views   ViewResolver
	mailer  Mailer
	log     *slog.Logger
	metrics *metrics.Metrics
	cfg     Config

	mu     sync.RWMutex
	closed bool
	queue  chan job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(views ViewResolver, mailer Mailer, log *slog.Logger, m *metrics.Metrics, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		views:   views,
		mailer:  mailer,
		log:     log.With(slog.String("component", "notify")),
		metrics: m,
		cfg:     cfg,
		queue:   make(chan job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify queues an event. It never blocks; events are dropped when the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Notify(userID, appointmentID uuid.UUID, action domain.Status) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	args := []any{
		slog.String("appointment_id", appointmentID.String()),
		slog.String("action", string(action)),
	}
	if d.closed {
		d.metrics.Notification(metrics.NotificationDropped)
		d.log.Warn("notification dropped, dispatcher closed", args...)
		return
	}
	select {
	case d.queue <- job{userID: userID, appointmentID: appointmentID, action: action}:
	default:
		d.metrics.Notification(metrics.NotificationDropped)
		d.log.Warn("notification dropped, queue full", args...)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
// When ctx expires first, pending retries are abandoned and ctx.Err() is
// returned once the workers have exited.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.queue {
		if d.ctx.Err() != nil {
			d.metrics.Notification(metrics.NotificationDropped)
			continue
		}
		d.deliver(j)
	}
}

func (d *Dispatcher) deliver(j job) {
	log := d.log.With(
		slog.String("user_id", j.userID.String()),
		slog.String("appointment_id", j.appointmentID.String()),
		slog.String("action", string(j.action)),
	)

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			ctx, cancel := context.WithTimeout(d.ctx, sendTimeout)
			defer cancel()

			view, err := d.views.GetView(ctx, j.appointmentID)
			if err != nil {
				return err
			}
			return d.mailer.Send(ctx, Compose(view, j.action))
		},
		IsFatalError: func(err error) bool {
			return errors.Is(err, store.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		NotifyFunc: func(err error, attempt int) {
			log.Warn("notification attempt failed", slog.Int("attempt", attempt), slog.Any("err", err))
		},
		Attempts: d.cfg.Attempts,
		Delay:    d.cfg.RetryDelay,
		Clock:    d.cfg.Clock,
		Stop:     d.ctx.Done(),
	})
	if err != nil {
		d.metrics.Notification(metrics.NotificationFailed)
		log.Error("notification failed", slog.Any("err", err))
		return
	}
	d.metrics.Notification(metrics.NotificationSent)
	log.Debug("notification sent")
}
