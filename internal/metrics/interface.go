package metrics

import "time"

// MetricsCollector counts provider loop and fan-out events per fingerprint.
type MetricsCollector interface {
	RefreshSucceeded(fingerprint string)
	RefreshFailed(fingerprint string)
	EmissionSuppressed(fingerprint string)
	Emitted(fingerprint string, at time.Time)
	Delivered(fingerprint string)
	DeliveryFailed(fingerprint string)
	Forget(fingerprint string)

	Snapshot(fingerprint string) (MetricsSnapshot, bool)
	Snapshots() map[string]MetricsSnapshot
}

// MetricsSnapshot is a point-in-time copy of one fingerprint's counters.
type MetricsSnapshot struct {
	Refreshes        uint64    `json:"refreshes"`
	RefreshErrors    uint64    `json:"refreshErrors"`
	Emissions        uint64    `json:"emissions"`
	Suppressed       uint64    `json:"suppressed"`
	Deliveries       uint64    `json:"deliveries"`
	DeliveryFailures uint64    `json:"deliveryFailures"`
	LastEmission     time.Time `json:"lastEmission"`
}
