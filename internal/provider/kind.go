package provider

// Kind identifies a provider variant.
type Kind string

const (
	KindCPU     Kind = "cpu"
	KindMemory  Kind = "memory"
	KindDisk    Kind = "disk"
	KindNetwork Kind = "network"
	KindBattery Kind = "battery"
	KindHost    Kind = "host"
	KindIP      Kind = "ip"
	KindWeather Kind = "weather"
	KindGPU     Kind = "gpu"
)

// Kinds lists every known provider kind.
var Kinds = []Kind{
	KindCPU, KindMemory, KindDisk, KindNetwork, KindBattery,
	KindHost, KindIP, KindWeather, KindGPU,
}

// RuntimeType selects how a provider's loop is scheduled.
type RuntimeType int

const (
	// Sync loops run on a dedicated OS thread and may block.
	Sync RuntimeType = iota
	// Async loops run as a cancellable goroutine around network calls.
	Async
)

func (r RuntimeType) String() string {
	switch r {
	case Sync:
		return "sync"
	case Async:
		return "async"
	default:
		return "unknown"
	}
}

type kindTraits struct {
	runtime        RuntimeType
	allowIdentical bool
}

// Values that change on every tick allow identical emits; the rest dedup.
var traits = map[Kind]kindTraits{
	KindCPU:     {runtime: Sync, allowIdentical: true},
	KindMemory:  {runtime: Sync, allowIdentical: true},
	KindDisk:    {runtime: Sync, allowIdentical: false},
	KindNetwork: {runtime: Sync, allowIdentical: true},
	KindBattery: {runtime: Sync, allowIdentical: false},
	KindHost:    {runtime: Sync, allowIdentical: true},
	KindIP:      {runtime: Async, allowIdentical: false},
	KindWeather: {runtime: Async, allowIdentical: false},
	KindGPU:     {runtime: Sync, allowIdentical: true},
}

// RuntimeOf returns the fixed runtime type of k.
func RuntimeOf(k Kind) RuntimeType {
	return traits[k].runtime
}

// AllowsIdenticalEmits reports whether k emits even when a refresh yields
// the same value as the previous one.
func AllowsIdenticalEmits(k Kind) bool {
	return traits[k].allowIdentical
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := traits[k]
	return ok
}
