package monitor

import (
	"context"
	"log"
	"sync"
	"time"

	"flamengo/src/types"
)

// CheckFunc asks the payment processor for the current status of the
// payment identified by its external id.
type CheckFunc func(ctx context.Context, externalId string) (types.PaymentStatus, error)

// ConfirmFunc runs the confirmation action for a local payment id.
type ConfirmFunc func(paymentId string) error

// Registry supervises the payment monitors. Each monitor is a cancellable
// task keyed by the local payment id; starting a second monitor for the same
// payment is a no-op, and shutdown awaits every outstanding task.
type Registry struct {
	interval     time.Duration
	maxChecks    int
	checkTimeout time.Duration
	check        CheckFunc
	onApproved   ConfirmFunc

	mu       sync.Mutex
	monitors map[string]context.CancelFunc
	wg       sync.WaitGroup
}

func NewRegistry(interval time.Duration, maxChecks int, check CheckFunc, onApproved ConfirmFunc) *Registry {
	return &Registry{
		interval:     interval,
		maxChecks:    maxChecks,
		checkTimeout: 10 * time.Second,
		check:        check,
		onApproved:   onApproved,
		monitors:     make(map[string]context.CancelFunc),
	}
}

var registry *Registry

// Init installs the process-wide registry.
func Init(r *Registry) *Registry {
	registry = r
	return registry
}

func Get() *Registry {
	return registry
}

// Start registers a monitor for the payment unless one is already running.
func (r *Registry) Start(paymentId string, externalId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.monitors[paymentId]; ok {
		log.Printf("[monitor] Payment %s is already being monitored\n", paymentId)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.monitors[paymentId] = cancel
	r.wg.Add(1)
	go r.run(ctx, paymentId, externalId)
	log.Printf("[monitor] Started monitor for payment %s\n", paymentId)
}

func (r *Registry) run(ctx context.Context, paymentId string, externalId string) {
	defer r.wg.Done()
	defer r.remove(paymentId)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for i := 0; i < r.maxChecks; i++ {
		select {
		case <-ctx.Done():
			log.Printf("[monitor] Monitor for payment %s cancelled\n", paymentId)
			return
		case <-ticker.C:
		}
		cctx, cancel := context.WithTimeout(ctx, r.checkTimeout)
		status, err := r.check(cctx, externalId)
		cancel()
		if err != nil {
			// transient failure: keep polling until the bound
			log.Printf("[monitor] Error checking payment %s: %s\n", paymentId, err.Error())
			continue
		}
		switch status {
		case types.PAYMENT_PENDING:
			continue
		case types.PAYMENT_APPROVED:
			if err := r.onApproved(paymentId); err != nil {
				log.Printf("[monitor] Error confirming payment %s: %s\n", paymentId, err.Error())
			}
			return
		default:
			log.Printf("[monitor] Payment %s reached terminal status %s, stopping\n", paymentId, status)
			return
		}
	}
	log.Printf("[monitor] Gave up on payment %s after %d checks\n", paymentId, r.maxChecks)
}

func (r *Registry) remove(paymentId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.monitors, paymentId)
}

// Cancel stops the monitor for a payment, if one is running. Used when the
// status is settled out of band (explicit approve/deny, webhook).
func (r *Registry) Cancel(paymentId string) bool {
	r.mu.Lock()
	cancel, ok := r.monitors[paymentId]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Active lists the payment ids currently being monitored.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.monitors))
	for id := range r.monitors {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown cancels every monitor and waits for them to finish, or for ctx
// to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, cancel := range r.monitors {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
