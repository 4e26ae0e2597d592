package provider

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type batteryProvider struct {
	base
	powerSupplyPath string
}

func newBatteryProvider(b base, powerSupplyPath string) *batteryProvider {
	return &batteryProvider{base: b, powerSupplyPath: powerSupplyPath}
}

func (p *batteryProvider) Refresh(context.Context) (Output, error) {
	dir, err := p.findBattery()
	if err != nil {
		return nil, err
	}

	r := supplyReader{dir: dir}

	voltageMicro, hasVoltage := r.readUint("voltage_now")
	energyNow, energyFull, energyDesign := r.energy(voltageMicro)
	power := r.powerMicroWatts(voltageMicro)

	state := parseBatteryState(r.readString("status"))
	out := BatteryOutput{
		State:            state,
		IsCharging:       state == BatteryCharging,
		PowerConsumption: round2(float64(power) / 1e6),
	}

	if capacity, ok := r.readUint("capacity"); ok {
		out.ChargePercent = float64(capacity)
	} else {
		out.ChargePercent = percent(energyNow, energyFull)
	}
	out.HealthPercent = percent(energyFull, energyDesign)

	if hasVoltage {
		volts := round2(float64(voltageMicro) / 1e6)
		out.Voltage = &volts
	}
	if cycles, ok := r.readUint("cycle_count"); ok && cycles > 0 {
		n := int(cycles)
		out.CycleCount = &n
	}

	if power > 0 {
		switch state {
		case BatteryDischarging:
			ms := hoursToMillis(float64(energyNow) / float64(power))
			out.TimeTillEmpty = &ms
		case BatteryCharging:
			if energyFull > energyNow {
				ms := hoursToMillis(float64(energyFull-energyNow) / float64(power))
				out.TimeTillFull = &ms
			}
		}
	}

	return out, nil
}

func (p *batteryProvider) findBattery() (string, error) {
	entries, err := os.ReadDir(p.powerSupplyPath)
	if err != nil {
		return "", refreshFailed(err)
	}

	for _, entry := range entries {
		dir := filepath.Join(p.powerSupplyPath, entry.Name())
		r := supplyReader{dir: dir}
		if !strings.EqualFold(r.readString("type"), "battery") {
			continue
		}
		if present, ok := r.readUint("present"); ok && present == 0 {
			continue
		}
		return dir, nil
	}

	return "", refreshFailedMsg("no battery present")
}

func parseBatteryState(status string) BatteryState {
	switch strings.ToLower(status) {
	case "charging":
		return BatteryCharging
	case "discharging":
		return BatteryDischarging
	case "full":
		return BatteryFull
	case "empty":
		return BatteryEmpty
	default:
		return BatteryUnknown
	}
}

func hoursToMillis(hours float64) int64 {
	return int64(hours * 3600 * 1000)
}

// supplyReader reads attributes of one /sys/class/power_supply entry.
type supplyReader struct {
	dir string
}

func (r supplyReader) readString(name string) string {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r supplyReader) readUint(name string) (uint64, bool) {
	value, err := strconv.ParseUint(r.readString(name), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// energy returns now, full and design energy in µWh. Batteries that only
// report charge (µAh) are converted with the current voltage.
func (r supplyReader) energy(voltageMicro uint64) (uint64, uint64, uint64) {
	read := func(energyName, chargeName string) uint64 {
		if v, ok := r.readUint(energyName); ok {
			return v
		}
		if v, ok := r.readUint(chargeName); ok && voltageMicro > 0 {
			return v * voltageMicro / 1e6
		}
		return 0
	}

	return read("energy_now", "charge_now"),
		read("energy_full", "charge_full"),
		read("energy_full_design", "charge_full_design")
}

// powerMicroWatts reads power_now, or derives it from current and voltage.
func (r supplyReader) powerMicroWatts(voltageMicro uint64) uint64 {
	if v, ok := r.readUint("power_now"); ok {
		return v
	}
	if current, ok := r.readUint("current_now"); ok && voltageMicro > 0 {
		return current * voltageMicro / 1e6
	}
	return 0
}
