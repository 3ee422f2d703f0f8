package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"wabook/internal/domain"
)

// DefaultWaitTimeout bounds a wait when the caller passes no explicit timeout.
const DefaultWaitTimeout = 30 * time.Second

var (
	// ErrWaitTimeout is returned when no matching event arrives in time.
	// Distinct from a hard failure; the caller may retry.
	ErrWaitTimeout = errors.New("timeout waiting for event")

	// ErrWaitInFlight is returned when a wait is already pending for the
	// same (kind, user) key.
	ErrWaitInFlight = errors.New("a wait is already in flight for this event and user")
)

// EventData is the payload a resolved wait delivers.
type EventData struct {
	UserID    string
	QRCode    string
	Connected bool
}

// waitKey identifies one pending wait.
type waitKey struct {
	Kind   Kind
	UserID string
}

// pendingWait delivers at most one EventData. A composite wait registers the
// same pendingWait under several keys; once guards exactly-once resolution.
type pendingWait struct {
	ch   chan EventData
	keys []waitKey
	once sync.Once
}

// Waiter bridges the asynchronous bus into synchronous await-with-timeout
// calls. It subscribes once to the QR and update topics; individual waits
// only register pending entries keyed by (kind, user), so concurrent waits
// for different users never interfere.
type Waiter struct {
	mu      sync.Mutex
	pending map[waitKey]*pendingWait
}

// NewWaiter creates a waiter bound to the given bus.
func NewWaiter(bus *Bus) (*Waiter, error) {
	w := &Waiter{
		pending: make(map[waitKey]*pendingWait),
	}

	if err := bus.SubscribeQR(w.onQR); err != nil {
		return nil, err
	}
	if err := bus.SubscribeUpdate(w.onUpdate); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Waiter) onQR(evt domain.QRGeneratedEvent) {
	w.resolve(waitKey{Kind: KindQR, UserID: evt.UserID}, EventData{
		UserID: evt.UserID,
		QRCode: evt.QRImageData,
	})
}

// onUpdate resolves waits on connected updates only. Intermediate statuses
// (CONNECTING, a QR-flow DISCONNECTED) keep the wait pending until a QR code
// or connection arrives, or the wait times out.
func (w *Waiter) onUpdate(evt domain.ConnectionUpdateEvent) {
	if evt.Status != domain.StatusConnected {
		return
	}
	w.resolve(waitKey{Kind: KindUpdate, UserID: evt.UserID}, EventData{
		UserID:    evt.UserID,
		Connected: true,
	})
}

// resolve delivers data to the pending wait for key, if any. Events with no
// matching wait are dropped; an already resolved wait ignores later events
// because its keys are gone from the map.
func (w *Waiter) resolve(key waitKey, data EventData) {
	w.mu.Lock()
	p, ok := w.pending[key]
	if ok {
		w.removeLocked(p)
	}
	w.mu.Unlock()

	if !ok {
		return
	}

	p.once.Do(func() {
		p.ch <- data
	})
}

// removeLocked drops every key of a pending wait. Caller holds w.mu.
func (w *Waiter) removeLocked(p *pendingWait) {
	for _, k := range p.keys {
		delete(w.pending, k)
	}
}

// register installs a pending wait under the given keys. Fails with
// ErrWaitInFlight if any key is taken.
func (w *Waiter) register(keys ...waitKey) (*pendingWait, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, k := range keys {
		if _, exists := w.pending[k]; exists {
			return nil, ErrWaitInFlight
		}
	}

	p := &pendingWait{
		ch:   make(chan EventData, 1),
		keys: keys,
	}
	for _, k := range keys {
		w.pending[k] = p
	}
	return p, nil
}

// await blocks until the pending wait resolves, the timeout elapses or the
// context is cancelled. The pending entry is removed on every path.
func (w *Waiter) await(ctx context.Context, p *pendingWait, timeout time.Duration) (EventData, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data := <-p.ch:
		return data, nil
	case <-timer.C:
		w.cancel(p)
		return EventData{}, ErrWaitTimeout
	case <-ctx.Done():
		w.cancel(p)
		return EventData{}, ctx.Err()
	}
}

// cancel deregisters a pending wait without resolving it, then drains a
// racing delivery so a concurrent resolve cannot leak into a later wait.
func (w *Waiter) cancel(p *pendingWait) {
	w.mu.Lock()
	w.removeLocked(p)
	w.mu.Unlock()

	p.once.Do(func() {})
	select {
	case <-p.ch:
	default:
	}
}

// WaitForEvent blocks until the first resolving event of the given kind
// arrives for the given user, or the timeout elapses. For KindUpdate that is
// a connected update. Exactly one resolution per wait: later events of the
// same kind for the same user are ignored.
func (w *Waiter) WaitForEvent(ctx context.Context, kind Kind, userID string, timeout time.Duration) (EventData, error) {
	p, err := w.register(waitKey{Kind: kind, UserID: userID})
	if err != nil {
		return EventData{}, err
	}

	log.Debug().
		Str("event", string(kind)).
		Str("user_id", userID).
		Dur("timeout", timeout).
		Msg("Waiting for event")

	return w.await(ctx, p, timeout)
}

// WaitForSessionReady blocks until either a QR challenge or a connected
// update arrives for the user, whichever comes first. Used by the
// create-session flow, where a previously authenticated session connects
// without ever issuing a QR code.
func (w *Waiter) WaitForSessionReady(ctx context.Context, userID string, timeout time.Duration) (EventData, error) {
	p, err := w.register(
		waitKey{Kind: KindQR, UserID: userID},
		waitKey{Kind: KindUpdate, UserID: userID},
	)
	if err != nil {
		return EventData{}, err
	}

	log.Debug().
		Str("user_id", userID).
		Dur("timeout", timeout).
		Msg("Waiting for QR or connected event")

	return w.await(ctx, p, timeout)
}

// CancelWait deregisters the pending wait for (kind, user) without resolving
// or rejecting it. Safe to call when no wait is pending.
func (w *Waiter) CancelWait(kind Kind, userID string) {
	w.mu.Lock()
	p, ok := w.pending[waitKey{Kind: kind, UserID: userID}]
	if ok {
		w.removeLocked(p)
	}
	w.mu.Unlock()

	if ok {
		p.once.Do(func() {})
	}
}

// PendingWaits reports the number of registered wait keys. Zero after every
// wait has resolved, timed out or been cancelled.
func (w *Waiter) PendingWaits() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
