package application

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"pkt.systems/pslog"
)

// NotificationWaiter waits for named notifications posted by the on-device
// agent. Each wait ends exactly once: on a matching notification, on timeout,
// or when the caller's context is done.
type NotificationWaiter struct {
	observer ports.NotificationObserver
	clock    ports.Clock
	log      pslog.Logger
	// detach runs observer removal outside the observer's own callback.
	detach func(func())
}

func NewNotificationWaiter(observer ports.NotificationObserver, clock ports.Clock, logger pslog.Logger) *NotificationWaiter {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	return &NotificationWaiter{
		observer: observer,
		clock:    clock,
		log:      logger,
		detach:   func(fn func()) { go fn() },
	}
}

// PendingNotification is a single registered wait. It implements
// ports.Observer.
type PendingNotification struct {
	waiter   *NotificationWaiter
	name     string
	timeout  time.Duration
	deadline time.Time

	mu           sync.Mutex
	settled      bool
	timer        ports.Timer
	done         chan struct{}
	notification domain.Notification
	err          error
}

// Begin registers the observer and arms the timeout. Notifications posted
// after Begin returns are not missed.
func (w *NotificationWaiter) Begin(name string, timeout time.Duration) *PendingNotification {
	pending := &PendingNotification{
		waiter:   w,
		name:     name,
		timeout:  timeout,
		deadline: w.clock.Now().Add(timeout),
		done:     make(chan struct{}),
	}

	w.observer.AddObserver(name, pending)

	timer := w.clock.AfterFunc(timeout, pending.expire)
	pending.mu.Lock()
	if pending.settled {
		timer.Stop()
	} else {
		pending.timer = timer
	}
	pending.mu.Unlock()

	w.log.Trace("awaiting notification", "notification", name, "timeout", timeout)
	return pending
}

func (w *NotificationWaiter) WaitForNotification(ctx context.Context, name string, timeout time.Duration) (domain.Notification, error) {
	return w.Begin(name, timeout).Wait(ctx)
}

func (p *PendingNotification) Name() string {
	return p.name
}

// String returns the notification name. Formatting a pending wait never
// touches its mutable state.
func (p *PendingNotification) String() string {
	return p.name
}

// Notify is called by the observer API. Notifications at or past the
// deadline lose to the timer.
func (p *PendingNotification) Notify(notification domain.Notification) {
	if notification.Name != p.name {
		return
	}
	if !p.waiter.clock.Now().Before(p.deadline) {
		p.expire()
		return
	}

	p.settle(notification, nil)
}

func (p *PendingNotification) expire() {
	p.settle(domain.Notification{}, &domain.NotificationTimeoutError{Name: p.name, Timeout: p.timeout})
}

func (p *PendingNotification) settle(notification domain.Notification, err error) bool {
	p.mu.Lock()
	if p.settled {
		p.mu.Unlock()
		return false
	}
	p.settled = true
	p.notification = notification
	p.err = err
	if p.timer != nil {
		p.timer.Stop()
	}
	close(p.done)
	p.mu.Unlock()

	w := p.waiter
	if err != nil {
		w.log.Debug("notification wait ended", "notification", p.name, "err", err)
	}
	w.detach(func() {
		w.observer.RemoveObserver(p.name, p)
	})

	return true
}

// Done is closed once the wait has settled.
func (p *PendingNotification) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the wait settles. Cancelling ctx settles it with
// ctx.Err() unless a result arrived first.
func (p *PendingNotification) Wait(ctx context.Context) (domain.Notification, error) {
	select {
	case <-p.done:
	case <-ctx.Done():
		p.settle(domain.Notification{}, ctx.Err())
		<-p.done
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notification, p.err
}
