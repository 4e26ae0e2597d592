package provider

import "math"

// SizeMeasure expresses a byte count in both decimal and binary units.
type SizeMeasure struct {
	Bytes    uint64  `json:"bytes"`
	SIValue  float64 `json:"siValue"`
	SIUnit   string  `json:"siUnit"`
	IECValue float64 `json:"iecValue"`
	IECUnit  string  `json:"iecUnit"`
}

var (
	siUnits  = []string{"B", "kB", "MB", "GB", "TB", "PB", "EB"}
	iecUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB", "EiB"}
)

func newSizeMeasure(bytes uint64) SizeMeasure {
	siValue, siUnit := scale(float64(bytes), 1000, siUnits)
	iecValue, iecUnit := scale(float64(bytes), 1024, iecUnits)

	return SizeMeasure{
		Bytes:    bytes,
		SIValue:  siValue,
		SIUnit:   siUnit,
		IECValue: iecValue,
		IECUnit:  iecUnit,
	}
}

func scale(value, base float64, units []string) (float64, string) {
	i := 0
	for value >= base && i < len(units)-1 {
		value /= base
		i++
	}

	return round2(value), units[i]
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func percent(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}
