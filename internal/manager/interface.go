package manager

import (
	"time"

	"codeberg.org/mutker/sysfeed/internal/provider"
)

// Emission is one output pushed to one subscriber of a fingerprint.
type Emission struct {
	ConfigHash string
	Output     provider.Output
	Timestamp  time.Time
}

// Dispatcher delivers emissions to subscribers outside the manager. Deliver
// must not block for long: it runs on the provider loop that produced the
// emission. An error marks that one delivery as lost.
type Dispatcher interface {
	Deliver(subscriberID string, e Emission) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(subscriberID string, e Emission) error

func (f DispatcherFunc) Deliver(subscriberID string, e Emission) error {
	return f(subscriberID, e)
}

// ProviderFactory builds a provider from a validated config.
type ProviderFactory interface {
	New(cfg provider.Config) (provider.Provider, error)
}
