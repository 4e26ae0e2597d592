package manager

import (
	"sort"
	"sync"
	"time"

	"codeberg.org/mutker/sysfeed/internal/logger"
	"codeberg.org/mutker/sysfeed/internal/metrics"
	"codeberg.org/mutker/sysfeed/internal/provider"
	"codeberg.org/mutker/sysfeed/internal/scheduler"
)

// ref is the runtime handle of one active fingerprint. Its subscriber set
// and last output live under its own lock so fan-out never waits on the
// registry.
type ref struct {
	fingerprint string
	kind        provider.Kind
	runner      scheduler.Runner
	dispatcher  Dispatcher
	metrics     metrics.MetricsCollector

	// deliverMu orders deliveries: loop emissions and the replay to a new
	// subscriber never interleave.
	deliverMu sync.Mutex

	mu           sync.Mutex
	subscribers  map[string]struct{}
	last         provider.Output
	lastRefresh  time.Time
	lastEmission time.Time
}

func newRef(fingerprint string, kind provider.Kind, subscriberID string, dispatcher Dispatcher, collector metrics.MetricsCollector) *ref {
	return &ref{
		fingerprint: fingerprint,
		kind:        kind,
		dispatcher:  dispatcher,
		metrics:     collector,
		subscribers: map[string]struct{}{subscriberID: {}},
	}
}

// Emit fans a new output out to every current subscriber.
func (r *ref) Emit(out provider.Output, at time.Time) {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mu.Lock()
	r.last = out
	r.lastRefresh = at
	r.lastEmission = at
	subscribers := r.subscriberList()
	r.mu.Unlock()

	r.metrics.Emitted(r.fingerprint, at)

	e := Emission{ConfigHash: r.fingerprint, Output: out, Timestamp: at}
	for _, id := range subscribers {
		r.deliver(id, e)
	}
}

// Touch records a refresh whose output was suppressed as a duplicate.
func (r *ref) Touch(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastRefresh = at
}

// addSubscriber joins subscriberID and replays the last output to it only.
// It reports false if the subscriber was already present.
func (r *ref) addSubscriber(subscriberID string) bool {
	r.deliverMu.Lock()
	defer r.deliverMu.Unlock()

	r.mu.Lock()
	if _, ok := r.subscribers[subscriberID]; ok {
		r.mu.Unlock()
		return false
	}
	r.subscribers[subscriberID] = struct{}{}
	last, at := r.last, r.lastEmission
	r.mu.Unlock()

	if last != nil {
		r.deliver(subscriberID, Emission{ConfigHash: r.fingerprint, Output: last, Timestamp: at})
	}

	return true
}

// removeSubscriber reports whether subscriberID was present and how many
// subscribers remain.
func (r *ref) removeSubscriber(subscriberID string) (bool, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[subscriberID]; !ok {
		return false, len(r.subscribers)
	}
	delete(r.subscribers, subscriberID)

	return true, len(r.subscribers)
}

func (r *ref) subscriberList() []string {
	ids := make([]string, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

func (r *ref) snapshot() (provider.Output, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last, r.lastRefresh
}

func (r *ref) deliver(subscriberID string, e Emission) {
	if err := r.dispatcher.Deliver(subscriberID, e); err != nil {
		r.metrics.DeliveryFailed(r.fingerprint)
		logger.Warn().
			Err(err).
			Str("fingerprint", r.fingerprint).
			Str("kind", string(r.kind)).
			Str("subscriber", subscriberID).
			Msg("Failed to deliver emission")
		return
	}
	r.metrics.Delivered(r.fingerprint)
}
